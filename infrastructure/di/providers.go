package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/application/services"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/config"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/messaging/eventbridge"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/persistence/dynamodb"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/persistence/memory"
	"github.com/Jayli58/do-we-have-it-backend/interfaces/http/rest"
	"github.com/Jayli58/do-we-have-it-backend/interfaces/http/rest/middleware"
	"github.com/Jayli58/do-we-have-it-backend/pkg/auth"
	"github.com/Jayli58/do-we-have-it-backend/pkg/observability"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "inventory"

// ProvideLogLevel parses the configured log level into an adjustable level.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return level, nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client. DYNAMODB_ENDPOINT points
// it at DynamoDB Local.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideStoreClient puts the circuit breaker in front of DynamoDB when enabled.
func ProvideStoreClient(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) dynamodb.Client {
	if !cfg.CircuitBreakerEnabled {
		return client
	}
	return dynamodb.NewBreakerClient(client, dynamodb.DefaultBreakerConfig(), logger)
}

// ProvideMetrics creates the Prometheus collector, or nil when metrics are off.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(metricsNamespace)
}

// ProvideRecorder adapts the collector to the store's recorder.
func ProvideRecorder(metrics *observability.Collector) dynamodb.Recorder {
	if metrics == nil {
		return dynamodb.NopRecorder{}
	}
	return metrics
}

// ProvideRepository selects the storage backend.
func ProvideRepository(
	cfg *config.Config,
	client dynamodb.Client,
	recorder dynamodb.Recorder,
	logger *zap.Logger,
) (ports.InventoryRepository, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewInventoryRepository(), nil
	case config.StorageDynamoDB:
		storeCfg, err := storeConfig(cfg)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewInventoryRepository(client, storeCfg, recorder, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

func storeConfig(cfg *config.Config) (dynamodb.Config, error) {
	strategy, err := dynamodb.ParseSearchStrategy(cfg.SearchStrategy)
	if err != nil {
		return dynamodb.Config{}, err
	}

	storeCfg := dynamodb.DefaultConfig()
	storeCfg.TableName = cfg.DynamoDBTable
	storeCfg.IndexName = cfg.IndexName
	storeCfg.SearchStrategy = strategy
	storeCfg.Batch.MaxRetries = cfg.BatchMaxRetries
	storeCfg.Batch.InitialDelay = cfg.BatchInitialDelay
	storeCfg.Batch.MaxDelay = cfg.BatchMaxDelay
	return storeCfg, nil
}

// ProvideReconciler exposes the repository's search index repair.
func ProvideReconciler(repo ports.InventoryRepository) (ports.SearchIndexReconciler, error) {
	reconciler, ok := repo.(ports.SearchIndexReconciler)
	if !ok {
		return nil, fmt.Errorf("repository %T cannot reconcile the search index", repo)
	}
	return reconciler, nil
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return ports.NopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideJWTValidator creates a validator for bearer tokens, or nil when no
// key is configured.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if !cfg.JWTEnabled() {
		return nil, nil
	}

	jwtCfg := auth.JWTConfig{SigningMethod: "HS256", SecretKey: cfg.JWTSecret}
	if cfg.JWTPublicKey != "" {
		jwtCfg = auth.JWTConfig{SigningMethod: "RS256", PublicKey: cfg.JWTPublicKey}
	}
	if cfg.CognitoUserPoolID != "" {
		region := cfg.CognitoRegion
		if region == "" {
			region = cfg.AWSRegion
		}
		jwtCfg.Issuer = auth.CognitoIssuer(region, cfg.CognitoUserPoolID)
	}
	if cfg.CognitoClientID != "" {
		jwtCfg.Audience = []string{cfg.CognitoClientID}
	}
	return auth.NewJWTValidator(jwtCfg)
}

// ProvideAuthConfig configures request authentication.
func ProvideAuthConfig(cfg *config.Config, validator *auth.JWTValidator) middleware.AuthConfig {
	return middleware.AuthConfig{Validator: validator, Required: cfg.AuthRequired}
}

// ProvideRouter creates the HTTP router.
func ProvideRouter(
	cfg *config.Config,
	inventory *services.InventoryService,
	templates *services.TemplateService,
	search *services.SearchService,
	authConfig middleware.AuthConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(inventory, templates, search, authConfig, metrics, cfg.FrontendURL, logger)
}
