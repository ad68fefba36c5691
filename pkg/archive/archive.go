// Package archive copies comparison reports to durable object storage.
package archive

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/testnetoor/pkg/config"
)

// ErrNotArchived is returned by FetchReport when no report is stored for a
// comparison.
var ErrNotArchived = errors.New("report not archived")

// Archiver stores the report text recorded with comparison results.
type Archiver interface {
	// Enabled reports whether reports are actually written anywhere.
	Enabled() bool

	// ArchiveReport stores report under the comparison id and returns the
	// location it was written to.
	ArchiveReport(ctx context.Context, comparisonID, report string) (string, error)

	// FetchReport returns a previously archived report.
	FetchReport(ctx context.Context, comparisonID string) (string, error)
}

// New returns the S3 archiver when it is enabled, and an archiver that
// does nothing otherwise.
func New(log logrus.FieldLogger, cfg config.ArchiveConfig) Archiver {
	if cfg.S3 == nil || !cfg.S3.Enabled {
		return &noopArchiver{}
	}

	return NewS3Archiver(log, cfg.S3)
}

type noopArchiver struct{}

var _ Archiver = (*noopArchiver)(nil)

func (a *noopArchiver) Enabled() bool { return false }

func (a *noopArchiver) ArchiveReport(context.Context, string, string) (string, error) {
	return "", nil
}

func (a *noopArchiver) FetchReport(context.Context, string) (string, error) {
	return "", ErrNotArchived
}
