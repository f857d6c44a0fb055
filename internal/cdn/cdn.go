// Package cdn invalidates cached copies of a draft after it is published.
package cdn

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
)

// Request is a single invalidation batch.
type Request struct {
	DistributionID  string
	Paths           []string
	CallerReference string
}

// Invalidator talks to a content-delivery provider.
type Invalidator interface {
	// Invalidate submits req and returns the provider's invalidation ID.
	Invalidate(ctx context.Context, req Request) (string, error)
	// Wait blocks until the invalidation is reported complete.
	Wait(ctx context.Context, distributionID, invalidationID string) error
}

// Trigger invalidates the draft's wildcard path and waits for completion.
// The caller reference is derived from now so repeated runs are distinct.
func Trigger(ctx context.Context, inv Invalidator, distributionID string, layout draftpath.Layout, now func() time.Time) (string, error) {
	if distributionID == "" {
		return "", derrors.ConfigError("distribution id is required for invalidation").Build()
	}
	req := NewRequest(distributionID, layout, now())
	if err := validatePaths(req.Paths, layout); err != nil {
		return "", err
	}

	start := time.Now()
	id, err := inv.Invalidate(ctx, req)
	if err != nil {
		return "", derrors.WrapError(err, derrors.CategoryCDN, "create invalidation").
			Fatal().Rerun().
			WithContext("distribution", distributionID).
			WithContext("path", req.Paths[0]).
			Build()
	}
	slog.Info("Invalidation submitted",
		slog.String("invalidation_id", id),
		logfields.Path(req.Paths[0]),
		slog.String("caller_reference", req.CallerReference))

	if err := inv.Wait(ctx, distributionID, id); err != nil {
		return id, derrors.WrapError(err, derrors.CategoryCDN, "wait for invalidation").
			Fatal().Rerun().
			WithContext("distribution", distributionID).
			WithContext("invalidation_id", id).
			Build()
	}
	slog.Info("Invalidation completed", slog.String("invalidation_id", id), logfields.Duration(time.Since(start)))
	return id, nil
}

// NewRequest builds the invalidation batch for layout at t.
func NewRequest(distributionID string, layout draftpath.Layout, t time.Time) Request {
	return Request{
		DistributionID:  distributionID,
		Paths:           []string{layout.InvalidationPath()},
		CallerReference: strconv.FormatInt(t.UnixNano(), 10),
	}
}

func validatePaths(paths []string, layout draftpath.Layout) error {
	if !layout.Dir.Valid() {
		return derrors.InternalError("invalidation requires a draft directory").
			WithContext("dir", string(layout.Dir)).Build()
	}
	want := layout.InvalidationPath()
	for _, p := range paths {
		if p != want {
			return derrors.InternalError("invalidation path escapes draft directory").
				WithContext("path", p).WithContext("want", want).Build()
		}
	}
	return nil
}
