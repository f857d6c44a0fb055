// Package publish replicates a locally staged draft tree into the bucket.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/docdraft/internal/artifacts"
	"git.home.luguber.info/inful/docdraft/internal/diff"
	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

// Mode selects how files are compared before transfer.
type Mode string

const (
	// ModeFull compares size, then content digest against the remote ETag.
	ModeFull Mode = "full"
	// ModeIncremental compares size only and skips transfer when sizes match.
	ModeIncremental Mode = "incremental"
)

// ModeFor maps the asset diff classification to a sync mode.
func ModeFor(c diff.Classification) Mode {
	if c == diff.Changed {
		return ModeFull
	}
	return ModeIncremental
}

// Result summarizes one Sync call.
type Result struct {
	Mode      Mode
	Uploaded  []string
	Deleted   []string
	Unchanged int
	Refused   []string // remote keys outside the filter; never modified
	TouchedAt time.Time
}

// Synchronizer pushes local draft trees to a bucket.
type Synchronizer struct {
	bucket storage.Bucket
	now    func() time.Time
}

// NewSynchronizer returns a Synchronizer writing to bucket.
func NewSynchronizer(bucket storage.Bucket) *Synchronizer {
	return &Synchronizer{bucket: bucket, now: time.Now}
}

// WithClock overrides the time source used for the marker touch.
func (s *Synchronizer) WithClock(now func() time.Time) *Synchronizer {
	if now != nil {
		s.now = now
	}
	return s
}

// Sync makes the remote draft subtree equal to localDraft, then refreshes the
// marker's touch time unconditionally. Remote objects without a local
// counterpart are deleted, but only inside the draft subtree. Nothing is
// rolled back on failure.
func (s *Synchronizer) Sync(ctx context.Context, localDraft string, layout draftpath.Layout, mode Mode) (*Result, error) {
	filter := DraftFilter(string(layout.Dir))
	rootPrefix := layout.Root + "/"
	res := &Result{Mode: mode}

	local, err := artifacts.Scan(localDraft)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "scan local draft").
			WithContext("path", localDraft).Build()
	}
	remote, err := s.bucket.List(ctx, layout.Prefix())
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "list remote draft").
			Fatal().Rerun().WithContext("prefix", layout.Prefix()).Build()
	}

	remoteByKey := make(map[string]storage.ObjectInfo, len(remote))
	for _, obj := range remote {
		if !filter.Allows(strings.TrimPrefix(obj.Key, rootPrefix)) {
			res.Refused = append(res.Refused, obj.Key)
			slog.Warn("Skipping remote object outside draft filter", logfields.Key(obj.Key))
			continue
		}
		remoteByKey[obj.Key] = obj
	}

	localKeys := make(map[string]struct{}, len(local.Files))
	for _, f := range local.Files {
		key := layout.Key(f.Rel)
		if !filter.Allows(strings.TrimPrefix(key, rootPrefix)) {
			return nil, derrors.InternalError("local file maps outside draft subtree").
				WithContext("key", key).Build()
		}
		localKeys[key] = struct{}{}

		obj, exists := remoteByKey[key]
		upload, err := needsUpload(mode, f, obj, exists)
		if err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "compare local file").
				WithContext("path", f.Path).Build()
		}
		if !upload {
			res.Unchanged++
			continue
		}
		if err := s.upload(ctx, f, key); err != nil {
			return res, err
		}
		res.Uploaded = append(res.Uploaded, key)
	}

	for _, obj := range remote {
		if _, ok := remoteByKey[obj.Key]; !ok {
			continue
		}
		if _, ok := localKeys[obj.Key]; ok {
			continue
		}
		if err := s.bucket.Delete(ctx, obj.Key); err != nil {
			return res, derrors.WrapError(err, derrors.CategoryStorage, "delete remote object").
				Fatal().Rerun().WithContext("key", obj.Key).Build()
		}
		slog.Debug("Deleted remote object", logfields.Key(obj.Key))
		res.Deleted = append(res.Deleted, obj.Key)
	}

	touched := s.now()
	if err := s.bucket.Touch(ctx, layout.MarkerKey(), TouchMetadata(touched)); err != nil {
		return res, derrors.WrapError(err, derrors.CategoryStorage, "touch source repository marker").
			Fatal().Rerun().WithContext("key", layout.MarkerKey()).Build()
	}
	res.TouchedAt = touched

	slog.Info("Draft synchronized",
		logfields.Draft(string(layout.Dir)),
		logfields.Mode(string(mode)),
		slog.Int("uploaded", len(res.Uploaded)),
		slog.Int("deleted", len(res.Deleted)),
		slog.Int("unchanged", res.Unchanged))
	return res, nil
}

func (s *Synchronizer) upload(ctx context.Context, f artifacts.File, key string) error {
	fh, err := os.Open(f.Path)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "open local file").
			WithContext("path", f.Path).Build()
	}
	defer func() { _ = fh.Close() }()

	if err := s.bucket.Put(ctx, key, fh, f.Size, nil); err != nil {
		return derrors.WrapError(err, derrors.CategoryStorage, "upload object").
			Fatal().Rerun().WithContext("key", key).Build()
	}
	slog.Debug("Uploaded object", logfields.Key(key), slog.Int64("size", f.Size))
	return nil
}

var plainETag = regexp.MustCompile(`^[0-9a-f]{32}$`)

func needsUpload(mode Mode, f artifacts.File, obj storage.ObjectInfo, exists bool) (bool, error) {
	if !exists || obj.Size != f.Size {
		return true, nil
	}
	if mode == ModeIncremental {
		return false, nil
	}
	if !plainETag.MatchString(obj.ETag) {
		// Multipart uploads carry no content digest; resend to be sure.
		return true, nil
	}
	sum, err := f.MD5()
	if err != nil {
		return false, fmt.Errorf("digest %s: %w", f.Rel, err)
	}
	return sum != obj.ETag, nil
}
