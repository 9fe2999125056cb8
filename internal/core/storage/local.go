package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider stores artifacts on the local filesystem, for development
// and tests.
type LocalProvider struct {
	basePath string // base directory for artifacts
	baseURL  string // base URL to access files
}

// NewLocalProvider creates a new local artifact storage provider
func NewLocalProvider(basePath, baseURL string) (*LocalProvider, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalProvider{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (p *LocalProvider) GetProviderName() string {
	return "local"
}

// PutArtifact writes the artifact under basePath and returns its URL.
func (p *LocalProvider) PutArtifact(ctx context.Context, userID, generationID string, index int, data []byte, ext string) (string, error) {
	key := artifactKey(userID, generationID, index, ext)

	filePath := filepath.Join(p.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return fmt.Sprintf("%s/%s", p.baseURL, key), nil
}
