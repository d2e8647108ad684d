package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penny/internal/account"
	"penny/pkg/platform/sentinel"
)

// fakeDynamo honours attribute_not_exists(email) on PutItem.
type fakeDynamo struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	putErr error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	key := in.Item["email"].(*types.AttributeValueMemberS).Value
	if _, exists := f.items[key]; exists && aws.ToString(in.ConditionExpression) == "attribute_not_exists(email)" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := in.Key["email"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func TestDynamoStore_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	store := NewDynamo(fake, "accounts")
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	rec, outcome, err := store.CreateIfAbsent(ctx, account.Record{Email: "jane@example.com", Name: "Jane Doe", Type: account.TypeSavings, CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, account.Created, outcome)
	assert.Equal(t, "Jane Doe", rec.Name)

	rec, outcome, err = store.CreateIfAbsent(ctx, account.Record{Email: "jane@example.com", Name: "Other", Type: account.TypeChecking, CreatedAt: created.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, account.AlreadyExisted, outcome)
	assert.Equal(t, "Jane Doe", rec.Name, "existing record is never overwritten")
	assert.Equal(t, account.TypeSavings, rec.Type)
	assert.True(t, created.Equal(rec.CreatedAt))
}

func TestDynamoStore_Get(t *testing.T) {
	store := NewDynamo(newFakeDynamo(), "accounts")
	_, err := store.Get(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDynamoStore_PutFailureIsUnavailable(t *testing.T) {
	fake := newFakeDynamo()
	fake.putErr = assert.AnError
	store := NewDynamo(fake, "accounts")

	_, _, err := store.CreateIfAbsent(context.Background(), account.Record{Email: "jane@example.com", Name: "Jane"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.ErrorIs(t, err, assert.AnError)
}
