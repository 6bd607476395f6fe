// Package auth implements pre-shared API key authentication for chordserve.
//
// Keys are loaded once at startup from the environment and are immutable for
// the process lifetime. Membership checks run in constant time across every
// registered key so that response timing leaks nothing about key contents.
package auth

import (
	"crypto/hmac"
	"errors"
	"log/slog"
	"strings"
)

// Environment variables consumed by LoadPolicy.
const (
	// EnvAPIKeys is a comma-separated list of accepted keys.
	EnvAPIKeys = "API_KEYS"

	// EnvAPIKeyPrefix marks variables each holding a single accepted key
	// (API_KEY_1, API_KEY_PARTNER, ...).
	EnvAPIKeyPrefix = "API_KEY_"

	// EnvDevelopmentMode disables authentication entirely when truthy.
	EnvDevelopmentMode = "DEVELOPMENT_MODE"
)

// minKeyLength is the length below which a key triggers a startup warning.
const minKeyLength = 16

// ErrNoCredentials indicates that no API keys are configured while
// development mode is off. The process must refuse to serve in this state.
var ErrNoCredentials = errors.New("no API keys configured and development mode is disabled")

// Policy holds the accepted credential set and the development-mode flag.
// It is built once at startup and read-only afterwards, so concurrent reads
// need no synchronization.
type Policy struct {
	keys            [][]byte
	developmentMode bool
}

// NewPolicy builds a Policy from an explicit key list. Duplicates and empty
// entries collapse. Intended for tests and embedding; production callers use
// LoadPolicy.
func NewPolicy(keys []string, developmentMode bool) *Policy {
	p := &Policy{developmentMode: developmentMode}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		p.keys = append(p.keys, []byte(k))
	}
	return p
}

// LoadPolicy builds the process-wide Policy from environment entries in
// os.Environ() form ("KEY=value"). It merges the comma-separated aggregate
// variable with any individually-named key variables, warns about short keys,
// and fails with ErrNoCredentials when the resulting set is empty outside of
// development mode.
func LoadPolicy(environ []string, logger *slog.Logger) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		keys       []string
		devMode    bool
		aggregate  int
		individual int
	)

	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		switch {
		case name == EnvDevelopmentMode:
			devMode = isTruthy(value)
		case name == EnvAPIKeys:
			for _, k := range strings.Split(value, ",") {
				if k = strings.TrimSpace(k); k != "" {
					keys = append(keys, k)
					aggregate++
				}
			}
		case strings.HasPrefix(name, EnvAPIKeyPrefix):
			if k := strings.TrimSpace(value); k != "" {
				keys = append(keys, k)
				individual++
			}
		}
	}

	p := NewPolicy(keys, devMode)

	if aggregate > 0 {
		logger.Info("loaded API keys from aggregate variable", "count", aggregate)
	}
	if individual > 0 {
		logger.Info("loaded API keys from individual variables", "count", individual)
	}

	weak := 0
	for _, k := range p.keys {
		if len(k) < minKeyLength {
			weak++
		}
	}
	if weak > 0 {
		logger.Warn("API keys shorter than recommended minimum configured",
			"count", weak,
			"min_length", minKeyLength,
		)
	}

	if len(p.keys) == 0 && !devMode {
		return nil, ErrNoCredentials
	}

	if devMode {
		logger.Warn("DEVELOPMENT MODE ENABLED - authentication disabled")
		if len(p.keys) > 0 {
			logger.Warn("API keys configured but ignored in development mode")
		}
	} else {
		logger.Info("authentication enabled", "key_count", len(p.keys))
	}

	return p, nil
}

// IsValid reports whether the candidate matches any registered key. The
// comparison visits every key using a constant-time equality check and never
// returns early on a match, so timing does not reveal which key matched or
// how far a comparison got.
func (p *Policy) IsValid(candidate string) bool {
	if candidate == "" {
		return false
	}

	candidateBytes := []byte(candidate)
	match := false
	for _, key := range p.keys {
		if hmac.Equal(candidateBytes, key) {
			match = true
		}
	}
	return match
}

// DevelopmentMode reports whether authentication is bypassed.
func (p *Policy) DevelopmentMode() bool {
	return p.developmentMode
}

// KeyCount returns the number of registered keys.
func (p *Policy) KeyCount() int {
	return len(p.keys)
}

// isTruthy interprets the development-mode flag value.
func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
