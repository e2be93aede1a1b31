package dynamodb

import (
	"context"
	"fmt"
	"math"
	"time"

	apperrors "github.com/Jayli58/do-we-have-it-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoDB request ceilings.
const (
	MaxBatchGetSize   = 100
	MaxBatchWriteSize = 25
)

// ErrUnprocessed is wrapped by every error reporting that DynamoDB kept
// rejecting part of a batch.
var ErrUnprocessed = fmt.Errorf("unprocessed batch items remain: %w", apperrors.ErrStoreBacklog)

// UnprocessedError reports how much of a batch was never applied.
type UnprocessedError struct {
	Operation string
	Remaining int
	Attempts  int
}

func (e *UnprocessedError) Error() string {
	return fmt.Sprintf("batch %s: %d requests still unprocessed after %d attempts", e.Operation, e.Remaining, e.Attempts)
}

func (e *UnprocessedError) Unwrap() error { return ErrUnprocessed }

// BatchConfig controls the resubmission of unprocessed batch remainders.
type BatchConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultBatchConfig returns retry settings suitable for on-demand tables.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxRetries:    8,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// delay returns the wait before retry number attempt (1-based).
func (c BatchConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// BatchExecutor splits reads and writes into request-sized chunks and
// resubmits whatever DynamoDB reports as unprocessed. Chunks run one after
// another; a chunk is finished before the next one starts.
type BatchExecutor struct {
	client    Client
	tableName string
	config    BatchConfig
	recorder  Recorder
	logger    *zap.Logger
}

// NewBatchExecutor creates an executor for tableName.
func NewBatchExecutor(client Client, tableName string, config BatchConfig, recorder Recorder, logger *zap.Logger) *BatchExecutor {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &BatchExecutor{
		client:    client,
		tableName: tableName,
		config:    config,
		recorder:  recorder,
		logger:    logger,
	}
}

// Get fetches every key and returns the records that exist. Missing keys
// are simply absent from the result. When retries run out the records read
// so far are returned together with an *UnprocessedError.
func (e *BatchExecutor) Get(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var results []map[string]types.AttributeValue

	chunks := chunk(keys, MaxBatchGetSize)
	for i, pending := range chunks {
		for attempt := 0; ; attempt++ {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			start := time.Now()
			out, err := e.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: map[string]types.KeysAndAttributes{
					e.tableName: {Keys: pending},
				},
			})
			e.recorder.RecordOperation("BatchGetItem", time.Since(start), err)
			if err != nil {
				return results, fmt.Errorf("batch get chunk %d: %w", i, err)
			}

			results = append(results, out.Responses[e.tableName]...)

			pending = nil
			if ka, ok := out.UnprocessedKeys[e.tableName]; ok {
				pending = ka.Keys
			}
			if len(pending) == 0 {
				break
			}
			e.recorder.RecordUnprocessed("BatchGetItem", len(pending))

			if attempt+1 > e.config.MaxRetries {
				return results, &UnprocessedError{
					Operation: "get",
					Remaining: len(pending) + remaining(chunks[i+1:]),
					Attempts:  attempt + 1,
				}
			}
			if err := e.wait(ctx, "get", i, attempt+1, len(pending)); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

// Write applies puts and deletes. It returns an *UnprocessedError when
// retries run out; everything in earlier chunks has been applied by then.
func (e *BatchExecutor) Write(ctx context.Context, writes []types.WriteRequest) error {
	chunks := chunk(writes, MaxBatchWriteSize)
	for i, pending := range chunks {
		e.logger.Debug("Writing batch chunk",
			zap.Int("chunk", i),
			zap.Int("size", len(pending)),
			zap.Int("chunks", len(chunks)),
		)

		for attempt := 0; ; attempt++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			out, err := e.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					e.tableName: pending,
				},
			})
			e.recorder.RecordOperation("BatchWriteItem", time.Since(start), err)
			if err != nil {
				return fmt.Errorf("batch write chunk %d: %w", i, err)
			}

			pending = out.UnprocessedItems[e.tableName]
			if len(pending) == 0 {
				break
			}
			e.recorder.RecordUnprocessed("BatchWriteItem", len(pending))

			if attempt+1 > e.config.MaxRetries {
				return &UnprocessedError{
					Operation: "write",
					Remaining: len(pending) + remaining(chunks[i+1:]),
					Attempts:  attempt + 1,
				}
			}
			if err := e.wait(ctx, "write", i, attempt+1, len(pending)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *BatchExecutor) wait(ctx context.Context, op string, chunkIndex, attempt, pending int) error {
	d := e.config.delay(attempt)
	e.logger.Warn("Retrying unprocessed batch items",
		zap.String("operation", op),
		zap.Int("chunk", chunkIndex),
		zap.Int("attempt", attempt),
		zap.Int("unprocessed", pending),
		zap.Duration("delay", d),
	)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func chunk[T any](items []T, size int) [][]T {
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func remaining[T any](chunks [][]T) int {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	return n
}

func putRequest(item map[string]types.AttributeValue) types.WriteRequest {
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
}

func deleteRequest(key map[string]types.AttributeValue) types.WriteRequest {
	return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}}
}
