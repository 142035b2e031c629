// Package secrets is a scoped secret-resolution layer: components receive a
// Resolver and fetch the one secret they need at wiring time. Secrets are
// never stored in process-wide mutable state and never logged.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver fetches one named secret. Implementations must be safe for
// concurrent use.
type Resolver interface {
	// Resolve returns the secret value for name, or an error if the secret
	// is absent. An empty value is treated as absent.
	Resolve(name string) (string, error)
}

// EnvResolver reads secrets from environment variables, optionally under a
// prefix (e.g. prefix "RYDES_" resolves "SMTP_PASSWORD" from
// RYDES_SMTP_PASSWORD).
type EnvResolver struct {
	Prefix string
}

func (r EnvResolver) Resolve(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(r.Prefix + name))
	if v == "" {
		return "", fmt.Errorf("secrets: %q not set", r.Prefix+name)
	}
	return v, nil
}

// FileResolver reads secrets from files under Dir (one file per secret,
// trailing whitespace trimmed). Matches the layout of mounted secret volumes.
type FileResolver struct {
	Dir string
}

func (r FileResolver) Resolve(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("secrets: invalid name %q", name)
	}
	b, err := os.ReadFile(filepath.Join(r.Dir, name))
	if err != nil {
		return "", fmt.Errorf("secrets: read %q: %w", name, err)
	}
	v := strings.TrimSpace(string(b))
	if v == "" {
		return "", fmt.Errorf("secrets: %q is empty", name)
	}
	return v, nil
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) Resolve(name string) (string, error) {
	var lastErr error
	for _, r := range c {
		v, err := r.Resolve(name)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("secrets: %q not found", name)
	}
	return "", lastErr
}

// Static resolves from a fixed map. Test use only.
type Static map[string]string

func (s Static) Resolve(name string) (string, error) {
	if v, ok := s[name]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secrets: %q not set", name)
}
