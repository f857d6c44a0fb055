package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docdraft/internal/diff"
	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	"git.home.luguber.info/inful/docdraft/internal/storage"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func stageDraft(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	require.NoError(t, WriteMarker(dir, "langflow-ai/langflow"))
	return dir
}

func newLayout() draftpath.Layout {
	return draftpath.NewLayout("langflow-drafts", "feature-login", "assets")
}

func TestSync_FirstPublishUploadsEverything(t *testing.T) {
	ctx := context.Background()
	local := stageDraft(t, map[string]string{
		"index.html":          "<html>home</html>",
		"assets/js/main.js":   "console.log(1)",
		"docs/api/index.html": "api",
	})
	b := storage.NewMemoryBucket("test")

	res, err := NewSynchronizer(b).WithClock(func() time.Time { return fixedNow }).Sync(ctx, local, newLayout(), ModeFull)
	require.NoError(t, err)
	require.Len(t, res.Uploaded, 4)
	require.Empty(t, res.Deleted)
	require.Equal(t, fixedNow, res.TouchedAt)

	marker, err := b.Head(ctx, "langflow-drafts/feature-login/.github_source_repository")
	require.NoError(t, err)
	require.Equal(t, "2026-10-17T12:00:00Z", marker.Metadata[MetaTouched])
	content, err := b.Get(ctx, "langflow-drafts/feature-login/.github_source_repository")
	require.NoError(t, err)
	require.Equal(t, "langflow-ai/langflow", string(content))
}

func TestSync_IsIdempotent(t *testing.T) {
	for _, mode := range []Mode{ModeFull, ModeIncremental} {
		t.Run(string(mode), func(t *testing.T) {
			ctx := context.Background()
			local := stageDraft(t, map[string]string{
				"index.html":        "<html>home</html>",
				"assets/js/main.js": "console.log(1)",
			})
			b := storage.NewMemoryBucket("test")
			s := NewSynchronizer(b)

			_, err := s.Sync(ctx, local, newLayout(), ModeFull)
			require.NoError(t, err)
			b.ResetCalls()

			res, err := s.Sync(ctx, local, newLayout(), mode)
			require.NoError(t, err)
			require.Empty(t, res.Uploaded)
			require.Empty(t, res.Deleted)
			require.Empty(t, b.Calls().Put)
			require.Empty(t, b.Calls().Delete)
			require.Equal(t, []string{"langflow-drafts/feature-login/.github_source_repository"}, b.Calls().Touch,
				"marker is touched even when nothing changed")
		})
	}
}

func TestSync_NeverTouchesSiblingDrafts(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemoryBucket("test")
	siblings := []string{
		"langflow-drafts/feature-login-v2/index.html",
		"langflow-drafts/feature-loginx/assets/app.js",
		"langflow-drafts/main/index.html",
		"langflow-drafts/index.html",
		"other-root/feature-login/index.html",
	}
	for _, k := range siblings {
		b.Seed(k, []byte("keep"), nil)
	}
	b.Seed("langflow-drafts/feature-login/stale.html", []byte("old"), nil)

	local := stageDraft(t, map[string]string{"index.html": "new"})
	res, err := NewSynchronizer(b).Sync(ctx, local, newLayout(), ModeFull)
	require.NoError(t, err)

	require.Equal(t, []string{"langflow-drafts/feature-login/stale.html"}, res.Deleted)
	for _, k := range siblings {
		_, err := b.Head(ctx, k)
		require.NoError(t, err, "sibling %s must survive", k)
	}
	for _, k := range b.Calls().Put {
		require.True(t, newLayout().Contains(k), "put outside draft: %s", k)
	}
}

func TestSync_FullDetectsSameSizeContentChange(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemoryBucket("test")
	local := stageDraft(t, map[string]string{"index.html": "aaaa"})
	s := NewSynchronizer(b)
	_, err := s.Sync(ctx, local, newLayout(), ModeFull)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(local, "index.html"), []byte("bbbb"), 0o644))
	b.ResetCalls()

	res, err := s.Sync(ctx, local, newLayout(), ModeIncremental)
	require.NoError(t, err)
	require.Empty(t, res.Uploaded, "size-only comparison misses same-size edits")

	res, err = s.Sync(ctx, local, newLayout(), ModeFull)
	require.NoError(t, err)
	require.Equal(t, []string{"langflow-drafts/feature-login/index.html"}, res.Uploaded)
}

func TestSync_ListFailureIsStorageError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	local := stageDraft(t, map[string]string{"index.html": "x"})

	_, err := NewSynchronizer(storage.NewMemoryBucket("test")).Sync(ctx, local, newLayout(), ModeFull)
	require.Error(t, err)
}

func TestModeFor(t *testing.T) {
	require.Equal(t, ModeFull, ModeFor(diff.Changed))
	require.Equal(t, ModeIncremental, ModeFor(diff.Unchanged))
}

func TestParseTouched(t *testing.T) {
	ts, ok := ParseTouched(TouchMetadata(fixedNow))
	require.True(t, ok)
	require.True(t, fixedNow.Equal(ts))

	_, ok = ParseTouched(map[string]string{MetaTouched: "yesterday"})
	require.False(t, ok)
	_, ok = ParseTouched(nil)
	require.False(t, ok)
}
