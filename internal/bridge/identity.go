package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
)

// Identifier computes the dedup/circularity key for an entry, per spec.md
// §3 "BridgeManifest entry" invariant: identifier = normalized key computed
// from (url) OR (command + args + resolved-cwd + relevant-env-hash).
// Entries sharing an identifier are coalesced (spec.md §4.7 "Dedup").
func Identifier(e Entry, resolvedCwd string) string {
	if e.HTTP != nil {
		return "http:" + normalizeURL(e.HTTP.URL)
	}

	s := e.Stdio
	var b strings.Builder
	b.WriteString("stdio:")
	b.WriteString(s.Command)
	b.WriteByte('|')
	b.WriteString(strings.Join(s.Args, "\x1f"))
	b.WriteByte('|')
	b.WriteString(filepath.Clean(resolvedCwd))
	b.WriteByte('|')
	b.WriteString(relevantEnvHash(s.Env))
	return b.String()
}

// normalizeURL lower-cases the scheme/host and strips a trailing slash so
// equivalent URLs hash identically.
func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimSuffix(u, "/")
	if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
		parsed.Scheme = strings.ToLower(parsed.Scheme)
		parsed.Host = strings.ToLower(parsed.Host)
		return parsed.String()
	}
	return strings.ToLower(u)
}

// relevantEnvHash hashes the env map's sorted key=value pairs. Only the
// manifest-declared env is "relevant" per spec.md §3; ambient process
// environment never participates in identity.
func relevantEnvHash(env map[string]string) string {
	if len(env) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, env[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
