package sitebuild

import (
	"context"
	"log/slog"
)

// NoopBuilder performs no build; the output directory is expected to exist
// already (prebuilt sites, tests).
type NoopBuilder struct{}

func (NoopBuilder) Build(_ context.Context, dir string) error {
	slog.Debug("NoopBuilder skipping build", "dir", dir)
	return nil
}
