// Package reaper removes drafts that have not been published for a while.
//
// Liveness is read from the touch time on each draft's source-repository
// marker. Only drafts whose marker names the configured repository are ever
// deleted; drafts without a marker or owned by another repository are left
// alone.
package reaper

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
	"git.home.luguber.info/inful/docdraft/internal/metrics"
	"git.home.luguber.info/inful/docdraft/internal/notify"
	"git.home.luguber.info/inful/docdraft/internal/publish"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

// Reasons a draft is kept.
const (
	KeepFresh      = "fresh"
	KeepNoMarker   = "no_marker"
	KeepForeign    = "foreign_repository"
	KeepUnreadable = "unreadable_marker"
)

// Options configures a Reaper.
type Options struct {
	Root       string
	AssetsDir  string
	Repository string
	TTL        time.Duration
	DryRun     bool
}

// Decision records what happened to one draft.
type Decision struct {
	Dir     draftpath.Directory
	Touched time.Time
	Objects int
	Reaped  bool
	Reason  string // set when kept
}

// Report summarizes a Run.
type Report struct {
	Decisions []Decision
	Deleted   int
}

// Reaped returns the drafts that were (or in dry-run mode would be) removed.
func (r *Report) Reaped() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Reaped {
			out = append(out, d)
		}
	}
	return out
}

// Reaper scans the drafts root and deletes expired drafts.
type Reaper struct {
	bucket    storage.Bucket
	opts      Options
	now       func() time.Time
	recorder  metrics.Recorder
	publisher notify.Publisher
}

// New returns a Reaper for bucket.
func New(bucket storage.Bucket, opts Options) *Reaper {
	return &Reaper{
		bucket:    bucket,
		opts:      opts,
		now:       time.Now,
		recorder:  metrics.NoopRecorder{},
		publisher: notify.NoopPublisher{},
	}
}

// WithClock overrides the time source.
func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	if now != nil {
		r.now = now
	}
	return r
}

// WithRecorder sets the metrics recorder.
func (r *Reaper) WithRecorder(rec metrics.Recorder) *Reaper {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// WithPublisher sets the event publisher notified of reaped drafts.
func (r *Reaper) WithPublisher(p notify.Publisher) *Reaper {
	if p != nil {
		r.publisher = p
	}
	return r
}

// Run performs one cleanup pass.
func (r *Reaper) Run(ctx context.Context) (*Report, error) {
	if r.opts.Repository == "" {
		return nil, derrors.ConfigError("repository is required to reap drafts").Build()
	}
	if r.opts.TTL <= 0 {
		return nil, derrors.ConfigError("reaper ttl must be positive").Build()
	}
	root := strings.Trim(r.opts.Root, "/")
	objects, err := r.bucket.List(ctx, root+"/")
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "list drafts root").
			WithContext("prefix", root+"/").Build()
	}

	drafts := groupByDraft(root, objects)
	dirs := make([]string, 0, len(drafts))
	for d := range drafts {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	report := &Report{}
	cutoff := r.now().Add(-r.opts.TTL)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		layout := draftpath.NewLayout(root, draftpath.Directory(dir), r.opts.AssetsDir)
		decision := r.decide(ctx, layout, drafts[dir], cutoff)
		if decision.Reaped && !r.opts.DryRun {
			n, err := r.deleteDraft(ctx, layout, drafts[dir])
			report.Deleted += n
			if err != nil {
				report.Decisions = append(report.Decisions, decision)
				return report, err
			}
			r.recorder.AddTransfers(metrics.OpReap, n)
			if err := r.publisher.Publish(ctx, notify.Event{Kind: notify.KindReaped, Draft: dir, Repository: r.opts.Repository, Deleted: n}); err != nil {
				slog.Warn("Failed to publish reap event", logfields.Draft(dir), logfields.Error(err))
			}
		}
		report.Decisions = append(report.Decisions, decision)
	}

	slog.Info("Reaper pass finished",
		slog.Int("drafts", len(dirs)),
		slog.Int("reaped", len(report.Reaped())),
		slog.Int("deleted_objects", report.Deleted),
		slog.Bool("dry_run", r.opts.DryRun))
	return report, nil
}

func (r *Reaper) decide(ctx context.Context, layout draftpath.Layout, objects []storage.ObjectInfo, cutoff time.Time) Decision {
	d := Decision{Dir: layout.Dir, Objects: len(objects)}
	markerKey := layout.MarkerKey()

	hasMarker := false
	for _, o := range objects {
		if o.Key == markerKey {
			hasMarker = true
			break
		}
	}
	if !hasMarker {
		d.Reason = KeepNoMarker
		return d
	}

	owner, err := r.bucket.Get(ctx, markerKey)
	if err != nil {
		slog.Warn("Cannot read draft marker", logfields.Key(markerKey), logfields.Error(err))
		d.Reason = KeepUnreadable
		return d
	}
	if strings.TrimSpace(string(owner)) != r.opts.Repository {
		d.Reason = KeepForeign
		return d
	}

	info, err := r.bucket.Head(ctx, markerKey)
	if err != nil {
		slog.Warn("Cannot stat draft marker", logfields.Key(markerKey), logfields.Error(err))
		d.Reason = KeepUnreadable
		return d
	}
	touched, ok := publish.ParseTouched(info.Metadata)
	if !ok {
		touched = info.LastModified
	}
	d.Touched = touched
	if touched.After(cutoff) {
		d.Reason = KeepFresh
		return d
	}
	d.Reaped = true
	slog.Info("Draft expired", logfields.Draft(string(layout.Dir)), slog.Time("touched", touched))
	return d
}

// deleteDraft removes every object of the draft, the marker last so an
// interrupted pass is retried on the next run.
func (r *Reaper) deleteDraft(ctx context.Context, layout draftpath.Layout, objects []storage.ObjectInfo) (int, error) {
	filter := publish.DraftFilter(string(layout.Dir))
	rootPrefix := layout.Root + "/"
	markerKey := layout.MarkerKey()
	deleted := 0
	for _, o := range objects {
		if o.Key == markerKey {
			continue
		}
		if !layout.Contains(o.Key) || !filter.Allows(strings.TrimPrefix(o.Key, rootPrefix)) {
			return deleted, derrors.InternalError("refusing to delete object outside draft").
				WithContext("key", o.Key).Build()
		}
		if err := r.bucket.Delete(ctx, o.Key); err != nil {
			return deleted, derrors.WrapError(err, derrors.CategoryStorage, "delete draft object").
				WithContext("key", o.Key).Build()
		}
		deleted++
	}
	if err := r.bucket.Delete(ctx, markerKey); err != nil {
		return deleted, derrors.WrapError(err, derrors.CategoryStorage, "delete draft marker").
			WithContext("key", markerKey).Build()
	}
	return deleted + 1, nil
}

func groupByDraft(root string, objects []storage.ObjectInfo) map[string][]storage.ObjectInfo {
	out := make(map[string][]storage.ObjectInfo)
	prefix := root + "/"
	for _, o := range objects {
		rest, ok := strings.CutPrefix(o.Key, prefix)
		if !ok {
			continue
		}
		dir, _, found := strings.Cut(rest, "/")
		if !found || dir == "" {
			// Objects directly under the root belong to no draft.
			continue
		}
		out[dir] = append(out[dir], o)
	}
	return out
}
