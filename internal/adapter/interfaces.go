package adapter

import (
	"context"
	"time"

	"github.com/mapgrove/mapsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// RemoteAdapter is the seam to the concrete cloud-storage backend. One
// vault maps to one remote folder, one map to one file inside it. All
// cross-device coordination funnels through the revision checks here.
type RemoteAdapter interface {
	// ListFiles returns one descriptor per map file in the vault's folder.
	ListFiles(ctx context.Context, vaultID string) ([]models.RemoteFile, error)

	// ReadFile downloads a single map file.
	ReadFile(ctx context.Context, vaultID, fileID string) (models.MapPayload, error)

	// WriteFile uploads a map file. A non-empty expectedRevision is an
	// optimistic precondition: the write fails with ErrRevisionMismatch if
	// the remote copy has moved past that revision, which detects
	// divergence atomically instead of via a read-then-write race. Returns
	// the revision assigned by the backend.
	WriteFile(ctx context.Context, vaultID, fileID string, payload models.MapPayload, expectedRevision string) (string, error)

	// DeleteFile removes a map file from the vault's folder.
	DeleteFile(ctx context.Context, vaultID, fileID string) error

	// GetVaultTimestamp returns the backend's modification time for the
	// vault as a whole, used to skip the merge pass on vault open when
	// nothing changed remotely.
	GetVaultTimestamp(ctx context.Context, vaultID string) (time.Time, error)

	// SetToken stores the bearer token supplied by the external
	// authentication layer.
	SetToken(token string)
}
