// Package s3store persists job records as one JSON object per id under
// an S3 prefix, mirroring the original S3Store layout: key =
// "<prefix>/<id>.json".
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

const jobExt = ".json"

// Store is an S3-backed Store.
type Store struct {
	client *s3.S3
	bucket string
	prefix string
}

// New opens a Store against bucket, storing objects under prefix (may be
// empty). It creates the bucket if a head-bucket check reports it
// missing, matching the original store's self-provisioning behavior.
func New(bucket, prefix string) (*Store, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("s3store: create session: %w", err)
	}
	client := s3.New(sess)

	s := &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
	if err := s.ensureBucket(); err != nil {
		return nil, err
	}
	logger.InfoF("s3store: initialized with bucket=%s prefix=%s", bucket, s.prefix)
	return s, nil
}

func (s *Store) ensureBucket() error {
	_, err := s.client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	aerr, ok := err.(awserr.Error)
	if !ok || (aerr.Code() != s3.ErrCodeNoSuchBucket && aerr.Code() != "NotFound") {
		return fmt.Errorf("s3store: head bucket %s: %w", s.bucket, err)
	}
	logger.Warn("s3store: bucket not found; creating bucket " + s.bucket)
	_, err = s.client.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3store: create bucket %s: %w", s.bucket, err)
	}
	return s.client.WaitUntilBucketExists(&s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
}

func (s *Store) objectKey(id string) string {
	if s.prefix == "" {
		return id + jobExt
	}
	return path.Join(s.prefix, id) + jobExt
}

func (s *Store) LoadAll(ctx context.Context) ([]*jobmodel.PersistedJob, error) {
	logger.InfoF("s3store: loading jobs from bucket %s prefix %s", s.bucket, s.prefix)
	var out []*jobmodel.PersistedJob
	listInput := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		listInput.Prefix = aws.String(s.prefix + "/")
	}

	err := s.client.ListObjectsV2PagesWithContext(ctx, listInput, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if !strings.HasSuffix(key, jobExt) {
				continue
			}
			id := strings.TrimSuffix(path.Base(key), jobExt)
			job, err := s.getObject(ctx, key)
			if err != nil {
				logger.ErrorF("s3store: failed to load object %s: %v", key, err)
				continue
			}
			job.ID = id
			out = append(out, job)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) getObject(ctx context.Context, key string) (*jobmodel.PersistedJob, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, err
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	var job jobmodel.PersistedJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) putObject(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
		Body:   bytes.NewReader(encoded),
	})
	return err
}

func (s *Store) Create(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	return s.putObject(ctx, id, data)
}

func (s *Store) Update(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	return s.putObject(ctx, id, data)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.objectKey(id))})
	return err
}
