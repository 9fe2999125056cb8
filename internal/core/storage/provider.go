package storage

import (
	"context"
	"fmt"
)

// Provider defines the interface for durable artifact storage.
// Artifacts are written once at a path namespaced by account and
// generation id; the returned URL is what gets persisted on the record.
type Provider interface {
	// PutArtifact stores one generated artifact and returns its public URL
	PutArtifact(ctx context.Context, userID, generationID string, index int, data []byte, ext string) (string, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

func artifactKey(userID, generationID string, index int, ext string) string {
	if index == 0 {
		return fmt.Sprintf("generations/%s/%s%s", userID, generationID, ext)
	}
	return fmt.Sprintf("generations/%s/%s_%d%s", userID, generationID, index, ext)
}

// ExtForMIME maps a provider MIME type to a file extension.
func ExtForMIME(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ".png"
	}
}
