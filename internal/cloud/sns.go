package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient publishes run-completion notifications.
type SNSClient struct {
	svc      *sns.Client
	topicArn string
}

func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

func (c *SNSClient) publish(ctx context.Context, subject, message string) error {
	_, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

// SendLoadSummary announces a completed bulk load.
func (c *SNSClient) SendLoadSummary(ctx context.Context, rows int64, elapsed time.Duration, rowsPerSec float64) error {
	subject := "gridbench: bulk load complete"
	message := fmt.Sprintf(
		"Bulk Load Complete\n\n"+
			"Rows inserted: %d\n"+
			"Elapsed:       %s\n"+
			"Throughput:    %.0f rows/sec\n"+
			"Finished:      %s\n",
		rows, elapsed.Round(time.Second), rowsPerSec, time.Now().Format(time.RFC3339))
	return c.publish(ctx, subject, message)
}

// SendBenchmarkSummary announces a completed benchmark run, with the
// report's S3 URL when one was uploaded.
func (c *SNSClient) SendBenchmarkSummary(ctx context.Context, chunkInterval string, queries int, reportURL string) error {
	subject := fmt.Sprintf("gridbench: benchmark complete (%s chunks)", chunkInterval)
	message := fmt.Sprintf(
		"Benchmark Run Complete\n\n"+
			"Chunk interval: %s\n"+
			"Queries timed:  %d\n"+
			"Finished:       %s\n",
		chunkInterval, queries, time.Now().Format(time.RFC3339))
	if reportURL != "" {
		message += fmt.Sprintf("Report:         %s\n", reportURL)
	}
	return c.publish(ctx, subject, message)
}
