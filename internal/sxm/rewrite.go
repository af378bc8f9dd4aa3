package sxm

import (
	"strings"
)

// basePath derives the proxy-relative directory segment lines must be
// prefixed with, from the variant playlist's own URL: strip the scheme,
// drop the CDN host (the first path component), and keep the directory the
// variant file lives in (spec.md §4.5). A variant directly under the host
// yields "".
func basePath(variantURL string) (string, error) {
	trimmed := strings.TrimPrefix(variantURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")

	lastSlash := strings.LastIndex(trimmed, "/")
	if lastSlash < 0 {
		return "", ErrParse
	}
	dir := trimmed[:lastSlash]

	hostSlash := strings.IndexByte(dir, '/')
	if hostSlash < 0 {
		return "", nil
	}
	return dir[hostSlash+1:], nil
}

// rewritePlaylist rewrites every segment line of a variant playlist so the
// player resolves it against this proxy instead of the CDN directly
// (Testable Property 5). Only lines naming a .aac segment are touched;
// #EXT directives and blank lines pass through unchanged.
func rewritePlaylist(body, variantURL string) (string, error) {
	base, err := basePath(variantURL)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasSuffix(trimmed, ".aac") {
			out.WriteString(base)
			out.WriteByte('/')
			out.WriteString(trimmed)
		} else {
			out.WriteString(trimmed)
		}
		if i < len(lines)-1 {
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}
