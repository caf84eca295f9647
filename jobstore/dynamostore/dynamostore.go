// Package dynamostore persists job records as items in a DynamoDB table:
// a hash key plus one JSON-text attribute, mirroring the original
// DynamoDBStore.
package dynamostore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/l3"
)

var logger = l3.Get()

const (
	keyName  = "job-id"
	dataName = "json-data"
)

// Store is a DynamoDB-backed Store.
type Store struct {
	client *dynamodb.DynamoDB
	table  string
}

// New opens a Store against table, creating it with a modest
// provisioned-throughput default if it does not already exist.
func New(table string) (*Store, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("dynamostore: create session: %w", err)
	}
	client := dynamodb.New(sess)

	s := &Store{client: client, table: table}
	if err := s.ensureTable(); err != nil {
		return nil, err
	}
	logger.InfoF("dynamostore: initialized with table=%s", table)
	return s, nil
}

func (s *Store) ensureTable() error {
	_, err := s.client.DescribeTable(&dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	if _, ok := err.(*dynamodb.ResourceNotFoundException); !ok {
		return fmt.Errorf("dynamostore: describe table %s: %w", s.table, err)
	}
	logger.Warn("dynamostore: table not found; creating table " + s.table)
	_, err = s.client.CreateTable(&dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String(keyName), AttributeType: aws.String("S")},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String(keyName), KeyType: aws.String("HASH")},
		},
		ProvisionedThroughput: &dynamodb.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	})
	if err != nil {
		return fmt.Errorf("dynamostore: create table %s: %w", s.table, err)
	}
	return s.client.WaitUntilTableExists(&dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
}

func (s *Store) LoadAll(ctx context.Context) ([]*jobmodel.PersistedJob, error) {
	logger.InfoF("dynamostore: loading jobs from table %s", s.table)
	var out []*jobmodel.PersistedJob
	err := s.client.ScanPagesWithContext(ctx, &dynamodb.ScanInput{TableName: aws.String(s.table)},
		func(page *dynamodb.ScanOutput, _ bool) bool {
			for _, item := range page.Items {
				job, id, err := decodeItem(item)
				if err != nil {
					logger.ErrorF("dynamostore: failed to decode item: %v", err)
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

func (s *Store) putItem(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]*dynamodb.AttributeValue{
			keyName:  {S: aws.String(id)},
			dataName: {S: aws.String(string(encoded))},
		},
	})
	return err
}

func (s *Store) Create(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	return s.putItem(ctx, id, data)
}

func (s *Store) Update(ctx context.Context, id string, data *jobmodel.PersistedJob) error {
	return s.putItem(ctx, id, data)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]*dynamodb.AttributeValue{
			keyName: {S: aws.String(id)},
		},
	})
	return err
}

func decodeItem(item map[string]*dynamodb.AttributeValue) (*jobmodel.PersistedJob, string, error) {
	idAttr, ok := item[keyName]
	if !ok || idAttr.S == nil {
		return nil, "", fmt.Errorf("dynamostore: item missing %q", keyName)
	}
	dataAttr, ok := item[dataName]
	if !ok || dataAttr.S == nil {
		return nil, "", fmt.Errorf("dynamostore: item missing %q", dataName)
	}
	var job jobmodel.PersistedJob
	if err := json.Unmarshal([]byte(*dataAttr.S), &job); err != nil {
		return nil, "", err
	}
	return &job, *idAttr.S, nil
}
