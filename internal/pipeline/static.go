package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/carpark-etl/internal/domain"
)

// Opener opens the raw static dataset.
type Opener interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Location() string
}

// StaticLoader reads and validates the static CSV behind an Opener.
// It implements StaticSource.
type StaticLoader struct {
	opener Opener
}

// NewStaticLoader creates a loader for the dataset behind o.
func NewStaticLoader(o Opener) *StaticLoader {
	return &StaticLoader{opener: o}
}

// Load opens the dataset and parses it. The whole file is rejected on any
// error; there is no partial table and no retry.
func (l *StaticLoader) Load(ctx context.Context) (domain.StaticTable, error) {
	rc, err := l.opener.Open(ctx)
	if err != nil {
		return domain.StaticTable{}, err
	}
	defer rc.Close()

	table, err := domain.ParseStaticCSV(rc)
	if err != nil {
		return domain.StaticTable{}, fmt.Errorf("%s: %w", l.opener.Location(), err)
	}
	return table, nil
}
