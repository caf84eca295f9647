// Package sqsqueue implements queuedepth.Client against AWS SQS,
// resolving a queue's URL by name and reading its
// ApproximateNumberOfMessages attribute, mirroring the session/client
// construction s3store uses for its own AWS service.
package sqsqueue

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

// Client probes SQS queue depth, caching resolved queue URLs by name
// since a queue's URL never changes for the lifetime of the process.
type Client struct {
	svc     sqsiface.SQSAPI
	urlsMu  sync.RWMutex
	urls    map[string]string
}

// New opens a Client against the default AWS session/region.
func New() (*Client, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return &Client{svc: sqs.New(sess), urls: make(map[string]string)}, nil
}

func (c *Client) queueURL(ctx context.Context, name string) (string, error) {
	c.urlsMu.RLock()
	url, ok := c.urls[name]
	c.urlsMu.RUnlock()
	if ok {
		return url, nil
	}

	out, err := c.svc.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", err
	}
	url = aws.StringValue(out.QueueUrl)

	c.urlsMu.Lock()
	c.urls[name] = url
	c.urlsMu.Unlock()
	return url, nil
}

// ApproximateMessages returns the queue's ApproximateNumberOfMessages
// attribute, resolving the queue's URL by name first.
func (c *Client) ApproximateMessages(ctx context.Context, queueName string) (int, error) {
	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return 0, err
	}

	out, err := c.svc.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: aws.StringSlice([]string{sqs.QueueAttributeNameApproximateNumberOfMessages}),
	})
	if err != nil {
		return 0, err
	}

	raw, ok := out.Attributes[sqs.QueueAttributeNameApproximateNumberOfMessages]
	if !ok {
		return 0, nil
	}
	depth, err := strconv.Atoi(aws.StringValue(raw))
	if err != nil {
		logger.WarnF("sqsqueue: unparseable queue depth %q for %s: %v", aws.StringValue(raw), queueName, err)
		return 0, nil
	}
	return depth, nil
}
