package acquisition

import (
	"context"

	"github.com/GriffinCanCode/casdk/internal/infrastructure/transport"
)

// SnapshotSource returns the current snapshot text of an external table.
type SnapshotSource interface {
	Snapshot(ctx context.Context, table TableDescriptor) (string, error)
}

// SnapshotFunc adapts a function to SnapshotSource.
type SnapshotFunc func(ctx context.Context, table TableDescriptor) (string, error)

// Snapshot implements SnapshotSource.
func (f SnapshotFunc) Snapshot(ctx context.Context, table TableDescriptor) (string, error) {
	return f(ctx, table)
}

// FetcherSource reads "<dataPath><table>" through a transport.Fetcher.
type FetcherSource struct {
	fetcher  transport.Fetcher
	dataPath string
}

// NewFetcherSource creates a source for the given data path prefix.
func NewFetcherSource(fetcher transport.Fetcher, dataPath string) *FetcherSource {
	return &FetcherSource{fetcher: fetcher, dataPath: dataPath}
}

// Path returns where the table snapshot is read from.
func (s *FetcherSource) Path(table TableDescriptor) string {
	return s.dataPath + table.Name
}

// Snapshot implements SnapshotSource.
func (s *FetcherSource) Snapshot(ctx context.Context, table TableDescriptor) (string, error) {
	data, err := s.fetcher.Fetch(ctx, s.Path(table))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
