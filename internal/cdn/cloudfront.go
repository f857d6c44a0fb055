package cdn

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

// CloudFrontAPI is the subset of the CloudFront client used here.
type CloudFrontAPI interface {
	cloudfront.GetInvalidationAPIClient
	CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// CloudFront implements Invalidator with Amazon CloudFront.
type CloudFront struct {
	client  CloudFrontAPI
	maxWait time.Duration
	minPoll time.Duration
}

// NewCloudFront wraps client. maxWait bounds the completion wait; zero means
// 30 minutes, which is beyond any CI job's useful life.
func NewCloudFront(client CloudFrontAPI, maxWait time.Duration) *CloudFront {
	if maxWait <= 0 {
		maxWait = 30 * time.Minute
	}
	return &CloudFront{client: client, maxWait: maxWait, minPoll: 20 * time.Second}
}

// NewCloudFrontFromConfig builds the client from an aws.Config.
func NewCloudFrontFromConfig(cfg aws.Config, maxWait time.Duration) *CloudFront {
	return NewCloudFront(cloudfront.NewFromConfig(cfg), maxWait)
}

func (c *CloudFront) Invalidate(ctx context.Context, req Request) (string, error) {
	out, err := c.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(req.DistributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(req.CallerReference),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(req.Paths))),
				Items:    req.Paths,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if out.Invalidation == nil || out.Invalidation.Id == nil {
		return "", fmt.Errorf("cloudfront returned no invalidation id")
	}
	return aws.ToString(out.Invalidation.Id), nil
}

func (c *CloudFront) Wait(ctx context.Context, distributionID, invalidationID string) error {
	waiter := cloudfront.NewInvalidationCompletedWaiter(c.client, func(o *cloudfront.InvalidationCompletedWaiterOptions) {
		o.MinDelay = c.minPoll
	})
	return waiter.Wait(ctx, &cloudfront.GetInvalidationInput{
		DistributionId: aws.String(distributionID),
		Id:             aws.String(invalidationID),
	}, c.maxWait)
}
