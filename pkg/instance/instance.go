package instance

import "os"

// GetID identifies the running process in logs and lock ownership. It prefers
// an explicit id, then the platform dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{"RENTALZ_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
