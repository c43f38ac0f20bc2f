package config

import (
	"os"
	"strings"
	"sync"
)

type AuthConfig struct {
	APIKeys []string
}

var (
	authConfig *AuthConfig
	authOnce   sync.Once
)

// LoadAuthConfig reads AUTH_API_KEYS, a comma separated list.
func LoadAuthConfig() *AuthConfig {
	authOnce.Do(func() {
		authConfig = &AuthConfig{APIKeys: splitList(os.Getenv("AUTH_API_KEYS"))}
	})
	return authConfig
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
