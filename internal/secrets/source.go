package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StageCurrent selects the currently active version of a secret.
const StageCurrent = "current"

// Source fetches the raw secret document for a logical secret name.
// Implementations wrap whatever backs the secret store (a managed secrets
// service in production, files or fixed values locally).
type Source interface {
	GetSecret(ctx context.Context, name, versionStage string) (string, error)
}

// Static serves fixed documents keyed by secret name. Used when the
// document is injected directly through the environment, and in tests.
type Static struct {
	Documents map[string]string
}

func (s Static) GetSecret(_ context.Context, name, _ string) (string, error) {
	doc, ok := s.Documents[name]
	if !ok || doc == "" {
		return "", fmt.Errorf("secret %q not found", name)
	}
	return doc, nil
}

// File reads one JSON document per secret from <dir>/<name>.json.
// The file on disk is always the current version, so the stage is ignored.
type File struct {
	Dir string
}

func (f File) GetSecret(_ context.Context, name, _ string) (string, error) {
	path := filepath.Join(f.Dir, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret %q: %w", name, err)
	}
	return string(raw), nil
}
