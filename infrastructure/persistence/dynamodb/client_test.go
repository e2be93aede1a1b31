package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Jayli58/do-we-have-it-backend/infrastructure/persistence/dynamodb/dynamotest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func getInput() *dynamodb.GetItemInput {
	return &dynamodb.GetItemInput{
		TableName: aws.String("Inventory"),
		Key:       tableKey("USER#u1", "TEMPLATE#t1"),
	}
}

func TestBreakerClient_OpensOnThrottling(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	client := NewBreakerClient(table, testBreakerConfig(), zap.NewNop())
	table.FailWith("GetItem", &types.ProvisionedThroughputExceededException{Message: aws.String("slow")})

	for i := 0; i < 2; i++ {
		_, err := client.GetItem(context.Background(), getInput())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	_, err := client.GetItem(context.Background(), getInput())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, table.Calls("GetItem"))
}

func TestBreakerClient_IgnoresClientFaults(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	client := NewBreakerClient(table, testBreakerConfig(), zap.NewNop())
	table.FailWith("GetItem", &types.ConditionalCheckFailedException{Message: aws.String("nope")})

	for i := 0; i < 4; i++ {
		_, err := client.GetItem(context.Background(), getInput())
		var ccf *types.ConditionalCheckFailedException
		require.True(t, errors.As(err, &ccf))
	}
	assert.Equal(t, gobreaker.StateClosed, client.State())
}

func TestBreakerClient_PassesResultsThrough(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	client := NewBreakerClient(table, testBreakerConfig(), zap.NewNop())

	_, err := client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String("Inventory"),
		Item:      tableKey("USER#u1", "TEMPLATE#t1"),
	})
	require.NoError(t, err)

	out, err := client.GetItem(context.Background(), getInput())
	require.NoError(t, err)
	assert.Equal(t, "TEMPLATE#t1", stringValue(out.Item[AttrSK]))
}
