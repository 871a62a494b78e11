package config

import "context"

// SecretProvider resolves secret references (file paths for <NAME>_FILE
// variables) to plaintext values.
type SecretProvider interface {
	// Resolve returns a map of reference -> value for every reference it
	// could read. Missing references are omitted rather than reported as an
	// error; the loader names them in its own error.
	Resolve(ctx context.Context, refs []string) (map[string]string, error)
}
