package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"penny/internal/account"
	"penny/pkg/platform/sentinel"
)

// dynamoAPI is the subset of *dynamodb.Client the store calls.
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore keeps accounts in a DynamoDB table whose partition key is
// "email". A conditional put on attribute_not_exists(email) makes creation
// idempotent.
type DynamoStore struct {
	client dynamoAPI
	table  string
}

func NewDynamo(client dynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

type dynamoItem struct {
	Email     string `dynamodbav:"email"`
	Name      string `dynamodbav:"name"`
	Type      string `dynamodbav:"account_type"`
	CreatedAt string `dynamodbav:"created_at"`
}

func (s *DynamoStore) CreateIfAbsent(ctx context.Context, record account.Record) (account.Record, account.CreateOutcome, error) {
	item, err := attributevalue.MarshalMap(dynamoItem{
		Email:     record.Email,
		Name:      record.Name,
		Type:      string(record.Type),
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return account.Record{}, 0, fmt.Errorf("marshal account: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(email)"),
	})
	if err == nil {
		return record, account.Created, nil
	}

	var condErr *types.ConditionalCheckFailedException
	if !errors.As(err, &condErr) {
		return account.Record{}, 0, fmt.Errorf("put account: %w: %w", sentinel.ErrUnavailable, err)
	}

	existing, err := s.Get(ctx, record.Email)
	if err != nil {
		return account.Record{}, 0, fmt.Errorf("load existing account: %w", err)
	}
	return existing, account.AlreadyExisted, nil
}

func (s *DynamoStore) Get(ctx context.Context, email string) (account.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"email": &types.AttributeValueMemberS{Value: email}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return account.Record{}, fmt.Errorf("get account: %w: %w", sentinel.ErrUnavailable, err)
	}
	if len(out.Item) == 0 {
		return account.Record{}, sentinel.ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return account.Record{}, fmt.Errorf("unmarshal account: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return account.Record{}, fmt.Errorf("parse account created_at: %w", err)
	}
	return account.Record{
		Email:     item.Email,
		Name:      item.Name,
		Type:      account.Type(item.Type),
		CreatedAt: createdAt,
	}, nil
}
