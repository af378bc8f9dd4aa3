package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Secrets resolves the SiriusXM account credentials. Keeping this behind an
// interface lets the environment-variable path (the default, for container
// deployment) and a TOML secrets file (for local development, where typing
// a password into the shell history is unwelcome) share one call site.
type Secrets interface {
	Credentials() (username, password string, err error)
}

// EnvSecrets reads SXM_USERNAME / SXM_PASSWORD from the environment.
type EnvSecrets struct{}

func (EnvSecrets) Credentials() (string, string, error) {
	return os.Getenv("SXM_USERNAME"), os.Getenv("SXM_PASSWORD"), nil
}

// tomlSecretsFile is the on-disk shape of a TOML secrets file.
type tomlSecretsFile struct {
	SiriusXM struct {
		Username string `toml:"username"`
		Password string `toml:"password"`
	} `toml:"siriusxm"`
}

// TOMLSecrets reads credentials from a TOML file, e.g.:
//
//	[siriusxm]
//	username = "you@example.com"
//	password = "hunter2"
type TOMLSecrets struct {
	Path string
}

func (t TOMLSecrets) Credentials() (string, string, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return "", "", fmt.Errorf("secrets: failed to read %s: %w", t.Path, err)
	}
	var f tomlSecretsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return "", "", fmt.Errorf("secrets: failed to parse %s: %w", t.Path, err)
	}
	return f.SiriusXM.Username, f.SiriusXM.Password, nil
}
