// Package ports declares the interfaces the dashboard engine depends on.
package ports

import (
	"context"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
)

// RecordStore fetches complete read-only snapshots from the external record
// store. The engine never writes back.
type RecordStore interface {
	FetchSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// SnapshotCache persists the last good snapshot so a restarted server can
// serve while the record store is slow or down.
type SnapshotCache interface {
	// Get returns the cached snapshot, or (nil, nil) on a miss.
	Get(ctx context.Context) (*models.Snapshot, error)
	Set(ctx context.Context, snap *models.Snapshot) error
}
