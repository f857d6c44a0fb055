package cdn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docdraft/internal/draftpath"
	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

var at = time.Date(2026, 10, 17, 12, 0, 0, 42, time.UTC)

func layout() draftpath.Layout {
	return draftpath.NewLayout("langflow-drafts", "docs-update-api", "assets")
}

func TestTrigger_ScopesToDraftAndWaits(t *testing.T) {
	inv := &MemoryInvalidator{}

	id, err := Trigger(context.Background(), inv, "E123", layout(), func() time.Time { return at })
	require.NoError(t, err)
	require.Equal(t, "I1", id)
	require.Len(t, inv.Requests, 1)
	require.Equal(t, []string{"/langflow-drafts/docs-update-api/*"}, inv.Requests[0].Paths)
	require.Equal(t, "E123", inv.Requests[0].DistributionID)
	require.Equal(t, "1792238400000000042", inv.Requests[0].CallerReference)
	require.Equal(t, []string{"I1"}, inv.Waited)
}

func TestTrigger_CallerReferenceVariesWithTime(t *testing.T) {
	a := NewRequest("E", layout(), at)
	b := NewRequest("E", layout(), at.Add(time.Second))
	require.NotEqual(t, a.CallerReference, b.CallerReference)
}

func TestTrigger_Failures(t *testing.T) {
	_, err := Trigger(context.Background(), &MemoryInvalidator{}, "", layout(), time.Now)
	require.True(t, derrors.HasCategory(err, derrors.CategoryConfig))

	_, err = Trigger(context.Background(), &MemoryInvalidator{FailWith: errors.New("denied")}, "E", layout(), time.Now)
	require.True(t, derrors.HasCategory(err, derrors.CategoryCDN))

	inv := &MemoryInvalidator{FailWait: errors.New("timeout")}
	id, err := Trigger(context.Background(), inv, "E", layout(), time.Now)
	require.True(t, derrors.HasCategory(err, derrors.CategoryCDN))
	require.Equal(t, "I1", id)
}

func TestTrigger_RefusesLayoutsWithoutDraftDirectory(t *testing.T) {
	for _, dir := range []draftpath.Directory{"", ".", ".."} {
		t.Run(string(dir), func(t *testing.T) {
			inv := &MemoryInvalidator{}
			l := draftpath.NewLayout("langflow-drafts", dir, "assets")
			_, err := Trigger(context.Background(), inv, "E123", l, time.Now)
			require.True(t, derrors.HasCategory(err, derrors.CategoryInternal))
			require.Empty(t, inv.Requests)
		})
	}
}

func TestValidatePaths_ExactDraftWildcard(t *testing.T) {
	require.NoError(t, validatePaths([]string{"/langflow-drafts/docs-update-api/*"}, layout()))
	require.Error(t, validatePaths([]string{"/langflow-drafts/docs-update-api/assets/*"}, layout()))
	require.Error(t, validatePaths([]string{"/langflow-drafts/*"}, layout()))
	require.Error(t, validatePaths([]string{"/*"}, layout()))
}

type fakeCloudFront struct {
	created  *cloudfront.CreateInvalidationInput
	statuses []string
	polls    int
}

func (f *fakeCloudFront) CreateInvalidation(_ context.Context, in *cloudfront.CreateInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.created = in
	return &cloudfront.CreateInvalidationOutput{Invalidation: &types.Invalidation{Id: aws.String("INV1"), Status: aws.String("InProgress")}}, nil
}

func (f *fakeCloudFront) GetInvalidation(_ context.Context, _ *cloudfront.GetInvalidationInput, _ ...func(*cloudfront.Options)) (*cloudfront.GetInvalidationOutput, error) {
	status := f.statuses[min(f.polls, len(f.statuses)-1)]
	f.polls++
	return &cloudfront.GetInvalidationOutput{Invalidation: &types.Invalidation{Id: aws.String("INV1"), Status: aws.String(status)}}, nil
}

func TestCloudFront_InvalidateAndWait(t *testing.T) {
	fake := &fakeCloudFront{statuses: []string{"Completed"}}
	cf := NewCloudFront(fake, time.Minute)

	id, err := cf.Invalidate(context.Background(), NewRequest("E1", layout(), at))
	require.NoError(t, err)
	require.Equal(t, "INV1", id)
	require.Equal(t, int32(1), aws.ToInt32(fake.created.InvalidationBatch.Paths.Quantity))
	require.Equal(t, []string{"/langflow-drafts/docs-update-api/*"}, fake.created.InvalidationBatch.Paths.Items)

	require.NoError(t, cf.Wait(context.Background(), "E1", id))
	require.Equal(t, 1, fake.polls)
}
