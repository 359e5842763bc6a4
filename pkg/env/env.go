// Package env reads process settings that are needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every setting the service reads.
const Prefix = "KUDIBOOKS_"

// Get returns KUDIBOOKS_<key>, then the bare key, then fallback.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, Prefix)
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
