package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "geoinsight"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "geoinsight:"

	DefaultMilvusAddr       = "localhost:19530"
	DefaultMilvusCollection = "query_mappings"
	DefaultEmbeddingDim     = 1536

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "geoinsight-worker"
	DefaultKafkaFactsTopic   = "geoinsight.facts.updated"
	DefaultKafkaRefreshTopic = "geoinsight.refresh.completed"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "geoinsight-snapshots"

	DefaultTranslatorModel          = "gpt-4o-mini"
	DefaultTranslatorEmbeddingModel = "text-embedding-3-small"

	// DefaultSimilarityThreshold is the cosine similarity floor for a
	// near-hit in the semantic query cache.
	DefaultSimilarityThreshold = 0.92
	// DefaultSearchTopK is the neighbor count per vector probe.
	DefaultSearchTopK = 5

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins.  Call after unmarshalling and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 50
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = 5 * time.Second
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 10 * time.Minute
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = DefaultMilvusCollection
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultEmbeddingDim
	}
	if cfg.Milvus.IndexType == "" {
		cfg.Milvus.IndexType = "HNSW"
	}
	if cfg.Milvus.HNSWM == 0 {
		cfg.Milvus.HNSWM = 16
	}
	if cfg.Milvus.HNSWEfConstruction == 0 {
		cfg.Milvus.HNSWEfConstruction = 200
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.FactsTopic == "" {
		cfg.Kafka.FactsTopic = DefaultKafkaFactsTopic
	}
	if cfg.Kafka.RefreshTopic == "" {
		cfg.Kafka.RefreshTopic = DefaultKafkaRefreshTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.DialTimeout == 0 {
		cfg.Kafka.DialTimeout = 10 * time.Second
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Translator ────────────────────────────────────────────────────────────
	if cfg.Translator.Model == "" {
		cfg.Translator.Model = DefaultTranslatorModel
	}
	if cfg.Translator.EmbeddingModel == "" {
		cfg.Translator.EmbeddingModel = DefaultTranslatorEmbeddingModel
	}
	if cfg.Translator.Timeout == 0 {
		cfg.Translator.Timeout = 20 * time.Second
	}
	if cfg.Translator.MaxTokens == 0 {
		cfg.Translator.MaxTokens = 512
	}

	// ── Query cache ───────────────────────────────────────────────────────────
	if cfg.QueryCache.SimilarityThreshold == 0 {
		cfg.QueryCache.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.QueryCache.SearchTopK == 0 {
		cfg.QueryCache.SearchTopK = DefaultSearchTopK
	}

	// ── Insight ───────────────────────────────────────────────────────────────
	if cfg.Insight.RefreshInterval == 0 {
		cfg.Insight.RefreshInterval = time.Hour
	}
	if cfg.Insight.RefreshDebounce == 0 {
		cfg.Insight.RefreshDebounce = 30 * time.Second
	}
	if cfg.Insight.LockTTL == 0 {
		cfg.Insight.LockTTL = 5 * time.Minute
	}
	if cfg.Insight.ResultCacheTTL == 0 {
		cfg.Insight.ResultCacheTTL = 5 * time.Minute
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
