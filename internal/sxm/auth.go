package sxm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/laurikarhu/sxmproxy/internal/metrics"
)

// SessionManager owns the shared Client's authentication lifecycle (C2).
// The cookie jar is the sole source of truth (Invariant 2) — this type
// keeps no parallel boolean state, only the serialization primitive needed
// to guarantee at most one re-authentication in flight.
type SessionManager struct {
	client   *Client
	username string
	password string
	stats    *metrics.Collector

	reauth singleflight.Group
}

// NewSessionManager wires a session manager around the shared client. stats
// may be nil; every call site is nil-checked.
func NewSessionManager(client *Client, username, password string, stats *metrics.Collector) *SessionManager {
	return &SessionManager{client: client, username: username, password: password, stats: stats}
}

func cookieValue(jar http.CookieJar, host *url.URL, name string) (string, bool) {
	for _, c := range jar.Cookies(host) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func (s *SessionManager) isLoggedIn() bool {
	_, ok := cookieValue(s.client.http.Jar, s.client.cookieHost, "SXMAUTHNEW")
	return ok
}

func (s *SessionManager) isAuthenticated() bool {
	_, okAlb := cookieValue(s.client.http.Jar, s.client.cookieHost, "AWSALB")
	_, okJsess := cookieValue(s.client.http.Jar, s.client.cookieHost, "JSESSIONID")
	return okAlb && okJsess
}

// sxmakToken extracts the bounded substring described in spec.md §6: the
// cookie value up to the first comma, after the first '='. Malformed or
// absent cookies are reported as "not authenticated", never panics (§9).
func (s *SessionManager) sxmakToken() (string, bool) {
	raw, ok := cookieValue(s.client.http.Jar, s.client.cookieHost, "SXMAKTOKEN")
	if !ok {
		return "", false
	}
	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return "", false
	}
	rest := raw[eq+1:]
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		rest = rest[:comma]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// gupID extracts gupId from the URL-encoded JSON SXMDATA cookie.
func (s *SessionManager) gupID() (string, bool) {
	raw, ok := cookieValue(s.client.http.Jar, s.client.cookieHost, "SXMDATA")
	if !ok {
		return "", false
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", false
	}
	var parsed struct {
		GupID string `json:"gupId"`
	}
	if err := json.Unmarshal([]byte(decoded), &parsed); err != nil {
		return "", false
	}
	if parsed.GupID == "" {
		return "", false
	}
	return parsed.GupID, true
}

// tokenParams builds the {token, consumer, gupId} triple needed on every
// CDN/variant fetch. Callers must re-derive this from the current jar at
// fetch time (Invariant 3) — never cache it alongside a playlist URL.
func (s *SessionManager) tokenParams() map[string]string {
	token, _ := s.sxmakToken()
	gup, _ := s.gupID()
	return map[string]string{
		"token":    token,
		"consumer": "k2",
		"gupId":    gup,
	}
}

// EnsureAuthenticated drives the S0→S1→S2 state machine from spec.md §4.2,
// advancing as far as possible toward "authenticated". Concurrent callers
// coalesce onto a single in-flight attempt via singleflight so at most one
// login+resume round trip is ever outstanding (Testable Property 6).
func (s *SessionManager) EnsureAuthenticated(ctx context.Context) error {
	if s.isAuthenticated() {
		return nil
	}
	return s.forceReauthenticate(ctx)
}

// ForceReauthenticate re-runs resume (preceded by login when the jar holds
// no SXMAUTHNEW cookie) even if the jar currently looks authenticated. Upstream's session-expired signal (HTTP 403 on the CDN, or
// message codes 201/208 on now-playing) means the cookies are stale from
// the server's point of view even though they are still present locally —
// §3 calls this out as reactive-only expiry detection.
func (s *SessionManager) ForceReauthenticate(ctx context.Context) error {
	return s.forceReauthenticate(ctx)
}

func (s *SessionManager) forceReauthenticate(ctx context.Context) error {
	if s.stats != nil {
		s.stats.IncReauth()
	}
	_, err, _ := s.reauth.Do("reauth", func() (any, error) {
		if !s.isLoggedIn() {
			if err := s.login(ctx); err != nil {
				return nil, err
			}
		}

		if err := s.resume(ctx); err != nil {
			return nil, err
		}

		if !s.isAuthenticated() {
			return nil, ErrAuthFailed
		}
		return nil, nil
	})
	if err != nil && s.stats != nil {
		s.stats.IncReauthFailure()
	}
	return err
}

func (s *SessionManager) login(ctx context.Context) error {
	body := newAuthBody(authModuleRequest{
		ResultTemplate: "web",
		DeviceInfo:     newDeviceInfo(),
		StandardAuth:   &standardAuth{Username: s.username, Password: s.password},
	})

	resp, status, err := s.client.restPost(ctx, "modify/authentication", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Msg("sxm: login received non-200")
		return ErrAuthFailed
	}
	if resp.ModuleListResponse.Status != 1 {
		log.Warn().Int("status", resp.ModuleListResponse.Status).Msg("sxm: login rejected")
		return ErrAuthFailed
	}
	if !s.isLoggedIn() {
		return ErrAuthFailed
	}
	if s.stats != nil {
		s.stats.IncLogin()
	}
	log.Info().Msg("sxm: login succeeded")
	return nil
}

func (s *SessionManager) resume(ctx context.Context) error {
	body := newAuthBody(authModuleRequest{
		ResultTemplate: "web",
		DeviceInfo:     newDeviceInfo(),
	})

	resp, status, err := s.client.restPost(ctx, "resume?OAtrial=false", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Msg("sxm: resume received non-200")
		return ErrAuthFailed
	}
	if resp.ModuleListResponse.Status != 1 {
		log.Warn().Int("status", resp.ModuleListResponse.Status).Msg("sxm: resume rejected")
		return ErrAuthFailed
	}
	if !s.isAuthenticated() {
		return ErrAuthFailed
	}
	log.Info().Msg("sxm: resume succeeded, session authenticated")
	return nil
}
