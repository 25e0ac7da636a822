// Package testutils holds helpers shared by package tests.
package testutils

import (
	"os"
	"testing"
)

// SetEnv sets the given variables and returns a func restoring their previous
// values. An empty value unsets the variable.
func SetEnv(t *testing.T, vars map[string]string) func() {
	t.Helper()

	type saved struct {
		value string
		ok    bool
	}
	previous := make(map[string]saved, len(vars))

	for key, value := range vars {
		old, ok := os.LookupEnv(key)
		previous[key] = saved{value: old, ok: ok}

		var err error
		if value == "" {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, value)
		}
		if err != nil {
			t.Fatalf("failed to set %s: %v", key, err)
		}
	}

	return func() {
		for key, s := range previous {
			if s.ok {
				_ = os.Setenv(key, s.value)
			} else {
				_ = os.Unsetenv(key)
			}
		}
	}
}
