package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Jayli58/do-we-have-it-backend/infrastructure/persistence/dynamodb/dynamotest"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastBatchConfig(retries int) BatchConfig {
	return BatchConfig{
		MaxRetries:    retries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func putRequests(n int) []types.WriteRequest {
	writes := make([]types.WriteRequest, 0, n)
	for i := 0; i < n; i++ {
		writes = append(writes, putRequest(map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: "USER#u1"},
			AttrSK: &types.AttributeValueMemberS{Value: fmt.Sprintf("ITEM#ROOT#item-%03d", i)},
		}))
	}
	return writes
}

func TestBatchExecutor_WriteChunksByTwentyFive(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(3), nil, zap.NewNop())

	err := exec.Write(context.Background(), putRequests(60))

	require.NoError(t, err)
	assert.Equal(t, 3, table.Calls("BatchWriteItem"))
	assert.Equal(t, 60, table.Len())
}

func TestBatchExecutor_WriteResubmitsUnprocessed(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	table.ThrottleWrites = 2
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(5), nil, zap.NewNop())

	err := exec.Write(context.Background(), putRequests(4))

	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, 3, table.Calls("BatchWriteItem"))
}

func TestBatchExecutor_WriteReportsExhaustion(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	table.ThrottleWrites = 100
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(1), nil, zap.NewNop())

	err := exec.Write(context.Background(), putRequests(30))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnprocessed))

	var unprocessed *UnprocessedError
	require.True(t, errors.As(err, &unprocessed))
	assert.Equal(t, "write", unprocessed.Operation)
	assert.Equal(t, 2, unprocessed.Attempts)
	// 25 in the first chunk, two applied, plus the untouched second chunk of 5.
	assert.Equal(t, 23+5, unprocessed.Remaining)
	assert.Equal(t, 2, table.Len())
}

func TestBatchExecutor_WriteStopsWhenContextEnds(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	table.ThrottleWrites = 100
	cfg := BatchConfig{MaxRetries: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 2}
	exec := NewBatchExecutor(table, "Inventory", cfg, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := exec.Write(ctx, putRequests(3))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, table.Calls("BatchWriteItem"))
}

func TestBatchExecutor_WriteHonoursCancelledContext(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(3), nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Write(ctx, putRequests(3))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, table.Calls("BatchWriteItem"))
}

func TestBatchExecutor_WritePropagatesStoreErrors(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	throttled := &types.ProvisionedThroughputExceededException{Message: stringPtr("slow down")}
	table.FailWith("BatchWriteItem", throttled)
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(3), nil, zap.NewNop())

	err := exec.Write(context.Background(), putRequests(3))

	var target *types.ProvisionedThroughputExceededException
	assert.True(t, errors.As(err, &target))
	assert.True(t, IsThrottle(err))
	assert.Equal(t, 1, table.Calls("BatchWriteItem"))
}

func TestBatchExecutor_GetChunksAndSkipsMissingKeys(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(3), nil, zap.NewNop())
	require.NoError(t, exec.Write(context.Background(), putRequests(120)))

	keys := make([]map[string]types.AttributeValue, 0, 150)
	for i := 0; i < 150; i++ {
		keys = append(keys, tableKey("USER#u1", fmt.Sprintf("ITEM#ROOT#item-%03d", i)))
	}

	got, err := exec.Get(context.Background(), keys)

	require.NoError(t, err)
	assert.Len(t, got, 120)
	assert.Equal(t, 2, table.Calls("BatchGetItem"))
}

func TestBatchExecutor_GetResubmitsUnprocessed(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(5), nil, zap.NewNop())
	require.NoError(t, exec.Write(context.Background(), putRequests(3)))
	table.ThrottleGets = 2

	keys := []map[string]types.AttributeValue{
		tableKey("USER#u1", "ITEM#ROOT#item-000"),
		tableKey("USER#u1", "ITEM#ROOT#item-001"),
		tableKey("USER#u1", "ITEM#ROOT#item-002"),
	}
	got, err := exec.Get(context.Background(), keys)

	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, table.Calls("BatchGetItem"))
}

func TestBatchExecutor_GetReportsExhaustionWithPartialResults(t *testing.T) {
	table := dynamotest.NewTable("Inventory")
	exec := NewBatchExecutor(table, "Inventory", fastBatchConfig(0), nil, zap.NewNop())
	require.NoError(t, exec.Write(context.Background(), putRequests(3)))
	table.ThrottleGets = 1

	keys := []map[string]types.AttributeValue{
		tableKey("USER#u1", "ITEM#ROOT#item-000"),
		tableKey("USER#u1", "ITEM#ROOT#item-001"),
	}
	got, err := exec.Get(context.Background(), keys)

	assert.ErrorIs(t, err, ErrUnprocessed)
	assert.Len(t, got, 1)
}

func TestBatchConfig_DelayGrowsAndCaps(t *testing.T) {
	cfg := BatchConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond, BackoffFactor: 2}

	assert.Equal(t, 10*time.Millisecond, cfg.delay(1))
	assert.Equal(t, 20*time.Millisecond, cfg.delay(2))
	assert.Equal(t, 35*time.Millisecond, cfg.delay(3))
	assert.Equal(t, 35*time.Millisecond, cfg.delay(10))
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, chunk([]int{1, 2, 3, 4, 5}, 3))
}

func stringPtr(s string) *string { return &s }
