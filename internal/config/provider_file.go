package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileSecretProvider implements SecretProvider by reading each reference as a
// file path, the convention used by Docker and Kubernetes secret mounts.
// Surrounding whitespace (including the trailing newline most editors add)
// is trimmed.
type FileSecretProvider struct {
	readFile func(string) ([]byte, error)
}

// NewFileSecretProvider creates a FileSecretProvider over the OS filesystem.
func NewFileSecretProvider() *FileSecretProvider {
	return &FileSecretProvider{readFile: os.ReadFile}
}

// Resolve implements SecretProvider. A missing file is omitted; any other
// read error aborts resolution.
func (p *FileSecretProvider) Resolve(ctx context.Context, refs []string) (map[string]string, error) {
	result := make(map[string]string, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := p.readFile(ref)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading secret file %s: %w", ref, err)
		}
		result[ref] = strings.TrimSpace(string(b))
	}
	return result, nil
}

var _ SecretProvider = (*FileSecretProvider)(nil)
