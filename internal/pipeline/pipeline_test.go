package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docdraft/internal/cdn"
	"git.home.luguber.info/inful/docdraft/internal/diff"
	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	"git.home.luguber.info/inful/docdraft/internal/forge"
	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/history"
	"git.home.luguber.info/inful/docdraft/internal/notify"
	"git.home.luguber.info/inful/docdraft/internal/publish"
	"git.home.luguber.info/inful/docdraft/internal/sitebuild"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

const baseURL = "https://drafts.example.com"

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// fakeBuilder writes a fixed site into <dir>/build.
type fakeBuilder struct {
	files map[string]string
	err   error
	calls int
}

func (b *fakeBuilder) Build(_ context.Context, dir string) error {
	b.calls++
	if b.err != nil {
		return b.err
	}
	out := filepath.Join(dir, "build")
	if err := os.RemoveAll(out); err != nil {
		return err
	}
	for rel, body := range b.files {
		p := filepath.Join(out, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			return err
		}
	}
	return nil
}

type harness struct {
	bucket    *storage.MemoryBucket
	inv       *cdn.MemoryInvalidator
	builder   *fakeBuilder
	comments  *forge.MemoryCommenter
	history   *history.SQLiteStore
	publisher *notify.MemoryPublisher
	pipeline  *Pipeline
	docsDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		bucket: storage.NewMemoryBucket("drafts"),
		inv:    &cdn.MemoryInvalidator{},
		builder: &fakeBuilder{files: map[string]string{
			"index.html":            "<h1>API</h1>",
			"docs/api/index.html":   "<h1>Endpoints</h1>",
			"assets/js/main.js":     "console.log(1)",
			"assets/css/styles.css": "body{}",
		}},
		comments:  forge.NewMemoryCommenter(),
		history:   store,
		publisher: &notify.MemoryPublisher{Subject: "docdraft"},
		docsDir:   t.TempDir(),
	}
	h.bucket.SetClock(func() time.Time { return fixedNow })
	seq := 0
	h.pipeline = New(Deps{
		Bucket:      h.bucket,
		Invalidator: h.inv,
		Builder:     h.builder,
		Reporter:    forge.NewReporter(h.comments, "acme/docs"),
		History:     store,
		Publisher:   h.publisher,
		Now:         func() time.Time { return fixedNow },
		NewRunID: func() string {
			seq++
			return "run-" + string(rune('0'+seq))
		},
	})
	return h
}

func (h *harness) options(ref string) Options {
	return Options{
		Ref:            ref,
		Repository:     "acme/docs",
		PullRequest:    7,
		Root:           "langflow-drafts",
		AssetsDir:      "assets",
		BaseURL:        baseURL,
		DistributionID: "E2EXAMPLE",
		DocsDir:        h.docsDir,
		OutputDir:      filepath.Join(h.docsDir, "build"),
		StagingDir:     filepath.Join(h.docsDir, ".staging"),
	}
}

func TestRun_FirstPublishEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	report, err := h.pipeline.Run(ctx, h.options("refs/heads/docs/update-api"))
	require.NoError(t, err)

	require.Equal(t, "docs-update-api", string(report.Directory))
	require.Equal(t, diff.Changed, report.Classification)
	require.Equal(t, publish.ModeFull, report.Mode)
	require.Equal(t, 5, report.Uploaded) // four site files plus the marker
	require.Zero(t, report.Deleted)
	require.Equal(t, "I1", report.InvalidationID)
	require.Equal(t, history.OutcomePublished, report.Outcome)
	require.Equal(t, baseURL+"/langflow-drafts/docs-update-api/index.html", report.URL)

	require.Equal(t, []string{
		"langflow-drafts/docs-update-api/.github_source_repository",
		"langflow-drafts/docs-update-api/assets/css/styles.css",
		"langflow-drafts/docs-update-api/assets/js/main.js",
		"langflow-drafts/docs-update-api/docs/api/index.html",
		"langflow-drafts/docs-update-api/index.html",
	}, h.bucket.Keys())

	marker, err := h.bucket.Get(ctx, "langflow-drafts/docs-update-api/.github_source_repository")
	require.NoError(t, err)
	require.Equal(t, "acme/docs", string(marker))
	info, err := h.bucket.Head(ctx, "langflow-drafts/docs-update-api/.github_source_repository")
	require.NoError(t, err)
	touched, ok := publish.ParseTouched(info.Metadata)
	require.True(t, ok)
	require.True(t, fixedNow.Equal(touched))

	require.Len(t, h.inv.Requests, 1)
	require.Equal(t, []string{"/langflow-drafts/docs-update-api/*"}, h.inv.Requests[0].Paths)
	require.Equal(t, []string{"I1"}, h.inv.Waited)

	bodies := h.comments.Bodies(7)
	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], forge.SuccessMarker))
	require.Contains(t, bodies[0], baseURL+"/langflow-drafts/docs-update-api/index.html")

	runs, err := h.history.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "docs-update-api", runs[0].Directory)
	require.Equal(t, "full", runs[0].Mode)

	events := h.publisher.Events()
	require.Len(t, events, 1)
	require.Equal(t, "docs-update-api", events[0].Draft)
	require.Equal(t, report.RunID, events[0].RunID)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	opts := h.options("refs/heads/docs/update-api")

	_, err := h.pipeline.Run(ctx, opts)
	require.NoError(t, err)
	h.bucket.ResetCalls()

	report, err := h.pipeline.Run(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, diff.Unchanged, report.Classification)
	require.Equal(t, publish.ModeIncremental, report.Mode)
	require.Zero(t, report.Uploaded)
	require.Zero(t, report.Deleted)

	calls := h.bucket.Calls()
	require.Empty(t, calls.Put)
	require.Empty(t, calls.Delete)
	require.Equal(t, []string{"langflow-drafts/docs-update-api/.github_source_repository"}, calls.Touch)
	require.Len(t, h.inv.Requests, 2)
	require.Len(t, h.comments.Bodies(7), 1)
}

func TestRun_RemovedPageIsDeletedAndSiblingKept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.bucket.Seed("langflow-drafts/docs-update-api-v2/index.html", []byte("sibling"), nil)
	h.bucket.Seed("langflow-drafts/other/index.html", []byte("other"), nil)

	_, err := h.pipeline.Run(ctx, h.options("refs/heads/docs/update-api"))
	require.NoError(t, err)

	delete(h.builder.files, "docs/api/index.html")
	report, err := h.pipeline.Run(ctx, h.options("refs/heads/docs/update-api"))
	require.NoError(t, err)
	require.Equal(t, 1, report.Deleted)
	require.Equal(t, []string{"langflow-drafts/docs-update-api/docs/api/index.html"}, h.bucket.Calls().Delete)

	keys := h.bucket.Keys()
	require.Contains(t, keys, "langflow-drafts/docs-update-api-v2/index.html")
	require.Contains(t, keys, "langflow-drafts/other/index.html")
}

func TestRun_BuildFailurePostsFailureComment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.builder.err = derrors.BuildError("site build failed").
		WithCause(&sitebuild.Failure{Err: errors.New("exit status 1"), Tail: "[ERROR] Docusaurus found broken links!"}).
		Build()

	report, err := h.pipeline.Run(ctx, h.options("refs/heads/docs/update-api"))
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryBuild))
	require.Equal(t, history.OutcomeBuildFailed, report.Outcome)

	calls := h.bucket.Calls()
	require.Zero(t, calls.List)
	require.Empty(t, calls.Put)
	require.Empty(t, h.inv.Requests)

	bodies := h.comments.Bodies(7)
	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], forge.FailureMarker))
	require.Contains(t, bodies[0], "Docusaurus found broken links")

	// A fixed build replaces the failure comment with the success comment.
	h.builder.err = nil
	_, err = h.pipeline.Run(ctx, h.options("refs/heads/docs/update-api"))
	require.NoError(t, err)
	bodies = h.comments.Bodies(7)
	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], forge.SuccessMarker))
	require.Len(t, h.publisher.Events(), 1)
}

func TestRun_InvalidRefAbortsBeforeRemoteCalls(t *testing.T) {
	h := newHarness(t)
	report, err := h.pipeline.Run(context.Background(), h.options("refs/heads/feature branch!"))
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryValidation))
	require.Equal(t, history.OutcomeRefused, report.Outcome)

	require.Zero(t, h.builder.calls)
	require.Zero(t, h.bucket.Calls().List)
	require.Empty(t, h.inv.Requests)
	require.Empty(t, h.comments.Bodies(7))
}

func TestRun_DotRefsLeaveDocsUntouched(t *testing.T) {
	for _, ref := range []string{"refs/heads/..", "refs/heads/."} {
		t.Run(ref, func(t *testing.T) {
			h := newHarness(t)
			source := filepath.Join(h.docsDir, "src", "intro.md")
			require.NoError(t, os.MkdirAll(filepath.Dir(source), 0o750))
			require.NoError(t, os.WriteFile(source, []byte("# Intro"), 0o600))

			report, err := h.pipeline.Run(context.Background(), h.options(ref))
			require.True(t, derrors.HasCategory(err, derrors.CategoryValidation))
			require.Equal(t, history.OutcomeRefused, report.Outcome)

			require.FileExists(t, source)
			require.Zero(t, h.builder.calls)
			calls := h.bucket.Calls()
			require.Zero(t, calls.List)
			require.Empty(t, calls.Put)
			require.Empty(t, calls.Delete)
			require.Empty(t, h.inv.Requests)
		})
	}
}

func TestRun_MissingBuildOutputPostsFailureComment(t *testing.T) {
	h := newHarness(t)
	h.builder.files = nil

	report, err := h.pipeline.Run(context.Background(), h.options("refs/heads/docs/update-api"))
	require.True(t, derrors.HasCategory(err, derrors.CategoryBuild))
	require.Equal(t, history.OutcomeBuildFailed, report.Outcome)
	require.Zero(t, h.bucket.Calls().List)

	bodies := h.comments.Bodies(7)
	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], forge.FailureMarker))
	require.Contains(t, bodies[0], "build output directory not found")
}

func TestRun_RefusesForks(t *testing.T) {
	h := newHarness(t)
	ev, err := forge.ParseEvent([]byte(`{"number":7,"pull_request":{"number":7,
		"head":{"repo":{"full_name":"someone/docs"}},"base":{"repo":{"full_name":"acme/docs"}}}}`))
	require.NoError(t, err)

	opts := h.options("refs/heads/patch-1")
	opts.Event = ev
	report, err := h.pipeline.Run(context.Background(), opts)
	require.ErrorIs(t, err, forge.ErrForkNotAllowed)
	require.Equal(t, history.OutcomeRefused, report.Outcome)
	require.Zero(t, h.builder.calls)
}

type failingPut struct {
	*storage.MemoryBucket
}

func (failingPut) Put(context.Context, string, io.Reader, int64, map[string]string) error {
	return errors.New("SlowDown")
}

func TestRun_TransferFailurePostsNoComment(t *testing.T) {
	h := newHarness(t)
	h.pipeline.deps.Bucket = failingPut{h.bucket}

	report, err := h.pipeline.Run(context.Background(), h.options("refs/heads/docs/update-api"))
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryStorage))
	require.Equal(t, history.OutcomeFailed, report.Outcome)
	require.Empty(t, h.inv.Requests)
	require.Empty(t, h.comments.Bodies(7))
	require.Empty(t, h.publisher.Events())
}

func TestRun_InvalidationFailurePostsNoComment(t *testing.T) {
	h := newHarness(t)
	h.inv.FailWait = errors.New("timeout")

	report, err := h.pipeline.Run(context.Background(), h.options("refs/heads/docs/update-api"))
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryCDN))
	require.Equal(t, "I1", report.InvalidationID)
	require.Empty(t, h.comments.Bodies(7))
	// Synced content stays in place.
	require.Len(t, h.bucket.Keys(), 5)

	runs, err := h.history.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, history.OutcomeFailed, runs[0].Outcome)
	require.Contains(t, runs[0].Error, "invalidation")
}

func TestRun_ForceModeAndSkips(t *testing.T) {
	h := newHarness(t)
	opts := h.options("main")
	opts.ForceMode = publish.ModeFull
	opts.SkipInvalidate = true
	opts.PullRequest = 0

	_, err := h.pipeline.Run(context.Background(), opts)
	require.NoError(t, err)
	report, err := h.pipeline.Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, diff.Unchanged, report.Classification)
	require.Equal(t, publish.ModeFull, report.Mode)
	require.Zero(t, report.Uploaded)
	require.Empty(t, h.inv.Requests)
	require.Empty(t, h.comments.Bodies(7))
	require.Equal(t, "main", string(report.Directory))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}).Run(context.Background(), Options{Ref: "main", Repository: "a/b"})
	require.True(t, derrors.HasCategory(err, derrors.CategoryInternal))
}

func TestStageDraft(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(out, "assets"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(out, "assets", "a.js"), []byte("y"), 0o600))
	staging := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "main"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "main", "stale.html"), []byte("old"), 0o600))

	dst, err := StageDraft(out, staging, "main", "acme/docs")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dst, "index.html"))
	require.FileExists(t, filepath.Join(dst, "assets", "a.js"))
	require.NoFileExists(t, filepath.Join(dst, "stale.html"))
	marker, err := os.ReadFile(filepath.Join(dst, ".github_source_repository"))
	require.NoError(t, err)
	require.Equal(t, "acme/docs", string(marker))

	_, err = StageDraft(filepath.Join(out, "missing"), staging, "main", "acme/docs")
	require.True(t, derrors.HasCategory(err, derrors.CategoryBuild))

	sibling := filepath.Join(filepath.Dir(staging), filepath.Base(staging)+"-sibling.txt")
	require.NoError(t, os.WriteFile(sibling, []byte("keep"), 0o600))
	for _, dir := range []draftpath.Directory{"..", ".", "", "a/b"} {
		_, err = StageDraft(out, staging, dir, "acme/docs")
		require.True(t, derrors.HasCategory(err, derrors.CategoryValidation), string(dir))
	}
	require.FileExists(t, sibling)
	require.FileExists(t, filepath.Join(dst, "index.html"))
}
