package config

import (
	"os"
	"strings"
)

// EnvironmentExpander expands ${VAR} and $VAR placeholders in raw configuration bytes.
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands from the process environment. ${VAR:-fallback}
// yields fallback when VAR is unset or empty; other unset variables become empty.
type OsEnvironmentExpander struct {
	lookup func(string) (string, bool)
}

func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{lookup: os.LookupEnv}
}

func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	lookup := e.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return []byte(os.Expand(string(input), func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v, ok := lookup(name); ok && (v != "" || !hasFallback) {
			return v
		}
		return fallback
	})), nil
}
