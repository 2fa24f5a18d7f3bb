package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `json:"server"       envPrefix:"TABLESCOUT_"`
	Database    DatabaseConfig    `json:"database"     envPrefix:"TABLESCOUT_"`
	Embedding   EmbeddingConfig   `json:"embedding"    envPrefix:"TABLESCOUT_"`
	Authoring   AuthoringConfig   `json:"authoring"    envPrefix:"TABLESCOUT_"`
	VectorStore VectorStoreConfig `json:"vector_store" envPrefix:"TABLESCOUT_"`
	Source      SourceConfig      `json:"source"       envPrefix:"TABLESCOUT_"`
	Catalog     CatalogConfig     `json:"catalog"      envPrefix:"TABLESCOUT_"`
	Retrieval   RetrievalConfig   `json:"retrieval"    envPrefix:"TABLESCOUT_"`
	Indexer     IndexerConfig     `json:"indexer"      envPrefix:"TABLESCOUT_"`
	ObjectStore ObjectStoreConfig `json:"object_store" envPrefix:"TABLESCOUT_"`
	Logging     LoggingConfig     `json:"logging"      envPrefix:"TABLESCOUT_"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"             env:"SERVER_PORT"             envDefault:"8080"`
	ShutdownTimeout string `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig represents the relational execution engine configuration
type DatabaseConfig struct {
	Driver          string `json:"driver"             env:"DB_DRIVER"            envDefault:"duckdb"` // duckdb, postgres
	DSN             string `json:"dsn"                env:"DB_DSN"               envDefault:"~/.config/tablescout/tablescout.db"`
	MaxConnections  int    `json:"max_connections"    env:"DB_MAX_CONNECTIONS"   envDefault:"10"`
	MaxIdleConns    int    `json:"max_idle_conns"     env:"DB_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime string `json:"conn_max_lifetime"  env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	QueryTimeout    string `json:"query_timeout"      env:"DB_QUERY_TIMEOUT"     envDefault:"30s"`
}

// EmbeddingConfig represents the embedding gateway configuration
type EmbeddingConfig struct {
	Provider   string `json:"provider"   env:"EMBEDDING_PROVIDER"   envDefault:"openai"` // openai, ollama, disabled
	Model      string `json:"model"      env:"EMBEDDING_MODEL"      envDefault:"text-embedding-3-small"`
	APIKey     string `json:"-"          env:"EMBEDDING_API_KEY"`
	BaseURL    string `json:"base_url"   env:"EMBEDDING_BASE_URL"`
	Dimensions int    `json:"dimensions" env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
}

// AuthoringConfig represents the SQL authoring gateway configuration
type AuthoringConfig struct {
	Provider string `json:"provider" env:"AUTHORING_PROVIDER" envDefault:"openai"` // openai, anthropic, ollama
	Model    string `json:"model"    env:"AUTHORING_MODEL"    envDefault:"gpt-4o-mini"`
	APIKey   string `json:"-"        env:"AUTHORING_API_KEY"`
	BaseURL  string `json:"base_url" env:"AUTHORING_BASE_URL"`
}

// VectorStoreConfig represents the vector index service configuration
type VectorStoreConfig struct {
	APIKey         string `json:"-"               env:"VECTOR_API_KEY"`
	ControlBaseURL string `json:"control_base_url" env:"VECTOR_CONTROL_URL" envDefault:"https://api.pinecone.io"`
	IndexBaseURL   string `json:"index_base_url"   env:"VECTOR_INDEX_URL"`
	IndexName      string `json:"index_name"       env:"VECTOR_INDEX_NAME"  envDefault:"tablescout-schemas"`
	Dimensions     int    `json:"dimensions"       env:"VECTOR_DIMENSIONS"  envDefault:"1536"`
	Metric         string `json:"metric"           env:"VECTOR_METRIC"      envDefault:"cosine"`
}

// SourceConfig represents the schema source repository configuration
type SourceConfig struct {
	Mode     string `json:"mode"      env:"SOURCE_MODE"      envDefault:"git"` // local, git, github
	Location string `json:"location"  env:"SOURCE_LOCATION"  envDefault:"https://github.com/smart-on-fhir/cumulus-library.git"`
	WorkDir  string `json:"work_dir"  env:"SOURCE_WORK_DIR"  envDefault:"~/.cache/tablescout/source"`
	SchemaDir string `json:"schema_dir" env:"SOURCE_SCHEMA_DIR" envDefault:"schemas"`
	DocsDir  string `json:"docs_dir"  env:"SOURCE_DOCS_DIR"  envDefault:"docs"`
}

// CatalogConfig represents the persisted schema catalog configuration
type CatalogConfig struct {
	Path string `json:"path" env:"CATALOG_PATH" envDefault:"~/.config/tablescout/catalog.json"`
}

// RetrievalConfig represents top-K retrieval configuration
type RetrievalConfig struct {
	TopK int `json:"top_k" env:"RETRIEVAL_TOP_K" envDefault:"5"`
}

// IndexerConfig represents index-building configuration
type IndexerConfig struct {
	BatchSize       int    `json:"batch_size"        env:"INDEXER_BATCH_SIZE"        envDefault:"100"`
	InterBatchDelay string `json:"inter_batch_delay" env:"INDEXER_INTER_BATCH_DELAY" envDefault:"1s"`
	Workers         int    `json:"workers"           env:"INDEXER_WORKERS"           envDefault:"8"`
}

// ObjectStoreConfig represents the optional S3-compatible catalog mirror
type ObjectStoreConfig struct {
	Enabled         bool   `json:"enabled"  env:"OBJECT_STORE_ENABLED" envDefault:"false"`
	Endpoint        string `json:"endpoint" env:"OBJECT_STORE_ENDPOINT"`
	Region          string `json:"region"   env:"OBJECT_STORE_REGION"`
	Bucket          string `json:"bucket"   env:"OBJECT_STORE_BUCKET"`
	AccessKeyID     string `json:"-"        env:"OBJECT_STORE_ACCESS_KEY"`
	SecretAccessKey string `json:"-"        env:"OBJECT_STORE_SECRET_KEY"`
	UseSSL          bool   `json:"use_ssl"  env:"OBJECT_STORE_USE_SSL" envDefault:"true"`
	Prefix          string `json:"prefix"   env:"OBJECT_STORE_PREFIX"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/tablescout/logs/app.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides (also sets defaults). The
	// TABLESCOUT_ prefix comes from the envPrefix tags on the sections.
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "port":
			if n, ok := value.(int); ok && n > 0 {
				config.Server.Port = n
			}
		case "top-k":
			if n, ok := value.(int); ok && n > 0 {
				config.Retrieval.TopK = n
			}
		case "batch-size":
			if n, ok := value.(int); ok && n > 0 {
				config.Indexer.BatchSize = n
			}
		case "batch-delay":
			if str, ok := value.(string); ok && str != "" {
				config.Indexer.InterBatchDelay = str
			}
		case "catalog":
			if str, ok := value.(string); ok && str != "" {
				config.Catalog.Path = str
			}
		case "source":
			if str, ok := value.(string); ok && str != "" {
				config.Source.Location = str
			}
		case "source-mode":
			if str, ok := value.(string); ok && str != "" {
				config.Source.Mode = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validDrivers := map[string]bool{
		"duckdb": true, "postgres": true,
	}
	if !validDrivers[config.Database.Driver] {
		return fmt.Errorf(
			"invalid database driver: %s (must be duckdb or postgres)",
			config.Database.Driver,
		)
	}

	validModes := map[string]bool{
		"local": true, "git": true, "github": true,
	}
	if !validModes[config.Source.Mode] {
		return fmt.Errorf(
			"invalid source mode: %s (must be local, git, or github)",
			config.Source.Mode,
		)
	}

	if _, err := time.ParseDuration(config.Indexer.InterBatchDelay); err != nil {
		return fmt.Errorf("invalid inter-batch delay: %s", config.Indexer.InterBatchDelay)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if config.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top-k must be positive: %d", config.Retrieval.TopK)
	}

	if config.Indexer.BatchSize < 1 {
		return fmt.Errorf("indexer batch size must be positive: %d", config.Indexer.BatchSize)
	}

	if config.Embedding.Dimensions < 1 {
		return fmt.Errorf("embedding dimensions must be positive: %d", config.Embedding.Dimensions)
	}

	if config.Embedding.Dimensions != config.VectorStore.Dimensions {
		return fmt.Errorf(
			"embedding dimensions (%d) must match vector store dimensions (%d)",
			config.Embedding.Dimensions, config.VectorStore.Dimensions,
		)
	}

	return nil
}

// Delay returns the parsed inter-batch delay duration
func (c *IndexerConfig) Delay() time.Duration {
	d, err := time.ParseDuration(c.InterBatchDelay)
	if err != nil {
		return time.Second
	}

	return d
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("TABLESCOUT_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "tablescout", "config.json")
}

// GetConfigPath exposes the resolved configuration file path
func GetConfigPath() string {
	return getConfigPath()
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.DSN = expandPath(c.Database.DSN)
	c.Catalog.Path = expandPath(c.Catalog.Path)
	c.Source.WorkDir = expandPath(c.Source.WorkDir)
	c.Logging.File = expandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Catalog.Path),
		c.Source.WorkDir,
		filepath.Dir(c.Logging.File),
	}

	if c.Database.Driver == "duckdb" {
		dirs = append(dirs, filepath.Dir(c.Database.DSN))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
