// Package hashing derives the stable keys used to match provider resources
// across documents.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashURL returns the lowercase hex SHA-256 of the normalized URL.
func HashURL(raw string, stripQuery bool) string {
	sum := sha256.Sum256([]byte(NormalizeURL(raw, stripQuery)))
	return hex.EncodeToString(sum[:])
}

// NormalizeURL trims the input, lowercases scheme and host, and drops a
// trailing slash and fragment. Unparseable input is only trimmed.
func NormalizeURL(raw string, stripQuery bool) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if stripQuery {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	return u.String()
}

// HashContent hashes an arbitrary canonical payload.
func HashContent(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
