package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/config"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/persistence/dynamodb"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/persistence/memory"
)

func TestInitializeContainer_Memory(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg := config.Default()
	cfg.Storage = config.StorageMemory
	cfg.EnableMetrics = true
	cfg.LogLevel = "warn"

	container, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)

	assert.IsType(t, &memory.InventoryRepository{}, container.Repository)
	assert.IsType(t, ports.NopPublisher{}, container.Publisher)
	assert.NotNil(t, container.Reconciler)
	assert.NotNil(t, container.Metrics)
	assert.Equal(t, zap.WarnLevel, container.Level.Level())
	assert.NotNil(t, container.Router.Setup())
}

func TestProvideLogLevel_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"

	_, err := ProvideLogLevel(cfg)
	assert.Error(t, err)
}

func TestProvideRecorder(t *testing.T) {
	assert.Equal(t, dynamodb.NopRecorder{}, ProvideRecorder(nil))
}

func TestStoreConfig(t *testing.T) {
	cfg := config.Default()
	cfg.SearchStrategy = "scan"
	cfg.BatchMaxRetries = 3

	storeCfg, err := storeConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, dynamodb.SearchByScan, storeCfg.SearchStrategy)
	assert.Equal(t, 3, storeCfg.Batch.MaxRetries)
	assert.Equal(t, cfg.DynamoDBTable, storeCfg.TableName)

	cfg.SearchStrategy = "grep"
	_, err = storeConfig(cfg)
	assert.Error(t, err)
}

func TestProvideJWTValidator(t *testing.T) {
	cfg := config.Default()
	v, err := ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.Nil(t, v)

	cfg.JWTSecret = "secret"
	cfg.CognitoUserPoolID = "ap-southeast-2_abc"
	v, err = ProvideJWTValidator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, v)

	cfg.JWTSecret = ""
	cfg.JWTPublicKey = "not a pem"
	_, err = ProvideJWTValidator(cfg)
	assert.Error(t, err)
}

func TestProvideStoreClient(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	cfg := config.Default()
	cfg.DynamoDBEndpoint = "http://localhost:8000"
	awsCfg, err := ProvideAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	awsClient := ProvideDynamoDBClient(awsCfg, cfg)

	cfg.CircuitBreakerEnabled = true
	assert.IsType(t, &dynamodb.BreakerClient{}, ProvideStoreClient(awsClient, cfg, zap.NewNop()))

	cfg.CircuitBreakerEnabled = false
	assert.Same(t, awsClient, ProvideStoreClient(awsClient, cfg, zap.NewNop()))
}
