package instance

import (
	"os"

	"github.com/angelmondragon/kudibooks-backend/pkg/env"
)

// GetID returns the worker instance identifier used as the task lease owner.
// Falls back to the hostname so replicas do not share an owner by accident.
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
