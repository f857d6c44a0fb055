package forge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReporter_SuccessThenFailureAreExclusive(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCommenter()
	r := NewReporter(m, "acme/docs")

	require.NoError(t, r.ReportSuccess(ctx, 7, "https://drafts.example.com/langflow-drafts/x/index.html"))
	bodies := m.Bodies(7)
	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], SuccessMarker))
	require.Contains(t, bodies[0], "https://drafts.example.com/langflow-drafts/x/index.html")

	require.NoError(t, r.ReportFailure(ctx, 7, "npm ERR! build failed\n"))
	bodies = m.Bodies(7)
	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], FailureMarker))
	require.Contains(t, bodies[0], "npm ERR! build failed")

	require.NoError(t, r.ReportSuccess(ctx, 7, "https://drafts.example.com/langflow-drafts/x/index.html"))
	bodies = m.Bodies(7)
	require.Len(t, bodies, 1)
	require.True(t, strings.HasPrefix(bodies[0], SuccessMarker))
}

func TestReporter_UpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCommenter()
	r := NewReporter(m, "acme/docs")

	require.NoError(t, r.ReportFailure(ctx, 7, "first"))
	first, _ := m.ListComments(ctx, "", 7)
	require.NoError(t, r.ReportFailure(ctx, 7, "second"))
	second, _ := m.ListComments(ctx, "", 7)

	require.Len(t, second, 1)
	require.Equal(t, first[0].ID, second[0].ID)
	require.Contains(t, second[0].Body, "second")
}

func TestReporter_LeavesUnrelatedComments(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCommenter()
	_, _ = m.CreateComment(ctx, "", 7, "LGTM")
	_, _ = m.CreateComment(ctx, "", 8, FailureMarker+"\nother PR")
	r := NewReporter(m, "acme/docs")

	require.NoError(t, r.ReportSuccess(ctx, 7, "u"))
	require.Len(t, m.Bodies(7), 2)
	require.Equal(t, "LGTM", m.Bodies(7)[0])
	require.Len(t, m.Bodies(8), 1)
}

func TestReporter_CollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryCommenter()
	_, _ = m.CreateComment(ctx, "", 7, SuccessMarker+"\nold")
	_, _ = m.CreateComment(ctx, "", 7, SuccessMarker+"\nolder")
	r := NewReporter(m, "acme/docs")

	require.NoError(t, r.ReportSuccess(ctx, 7, "u"))
	require.Len(t, m.Bodies(7), 1)
}

func TestReporter_PropagatesErrors(t *testing.T) {
	m := NewMemoryCommenter()
	m.FailWith = errors.New("boom")
	err := NewReporter(m, "acme/docs").ReportSuccess(context.Background(), 7, "u")
	require.EqualError(t, err, "boom")
}

func TestReporter_AgainstHTTP(t *testing.T) {
	f := &fakeGitHub{}
	c := newTestClient(t, f)
	r := NewReporter(c, "acme/docs")
	ctx := context.Background()

	require.NoError(t, r.ReportFailure(ctx, 7, "tail"))
	require.NoError(t, r.ReportSuccess(ctx, 7, "https://d/x/index.html"))

	require.Len(t, f.comments, 1)
	require.Contains(t, f.comments[0].Body, SuccessMarker)
}
