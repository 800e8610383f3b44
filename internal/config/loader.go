package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all platform settings.
const envPrefix = "GEOINSIGHT"

// envKeys lists every leaf key so that env-only loading works: viper's
// Unmarshal only visits keys it already knows about, and AutomaticEnv alone
// does not register any.
var envKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
	"server.shutdown_timeout", "server.rate_limit_rps",
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime", "database.conn_max_idle_time",
	"database.statement_timeout", "database.migration_path",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",
	"milvus.addr", "milvus.db_name", "milvus.collection", "milvus.embedding_dim",
	"milvus.index_type", "milvus.hnsw_m", "milvus.hnsw_ef_construction",
	"kafka.brokers", "kafka.group_id", "kafka.facts_topic", "kafka.refresh_topic",
	"kafka.auto_offset_reset", "kafka.dial_timeout",
	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
	"minio.use_ssl",
	"translator.base_url", "translator.api_key", "translator.model",
	"translator.embedding_model", "translator.timeout", "translator.max_tokens",
	"query_cache.similarity_threshold", "query_cache.search_top_k",
	"insight.refresh_interval", "insight.refresh_debounce", "insight.lock_ttl",
	"insight.result_cache_ttl",
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
}

// newViper builds a pre-configured viper instance: YAML file type,
// GEOINSIGHT_ env prefix, automatic env binding, and a key replacer mapping
// "." → "_" so "database.host" resolves to GEOINSIGHT_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges GEOINSIGHT_* environment
// overrides, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from GEOINSIGHT_* environment variables
// plus defaults, with no config file.  Preferred for containerised
// deployments: GEOINSIGHT_<SECTION>_<FIELD>, e.g. GEOINSIGHT_REDIS_ADDR.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// whenever the file changes on disk.  Intended for hot-reloading the safe
// subset of settings (log level, cache similarity threshold); callers decide
// which changed fields to apply at runtime.
//
// Watch is non-blocking; the watcher goroutine is managed by viper.  A change
// that fails to parse or validate is dropped so the process never observes a
// broken configuration.
func Watch(configPath string, onChange func(*Config)) error {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: watch read %q: %w", configPath, err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on error.  For use in main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
