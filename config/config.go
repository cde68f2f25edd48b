package config

import (
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	AppName                       string
	Port                          int
	LogLevel                      string
	PrettyLogs                    bool
	HttpServerWriteTimeoutSeconds int
	HttpServerReadTimeoutSeconds  int
	HttpServerIdleTimeoutSeconds  int
	ShutdownTimeoutSeconds        int
	StartupMaxAttempts            int

	// PostgreSQL
	DatabaseHost                  string
	DatabasePort                  string
	DatabaseUserName              string
	DatabasePassword              string
	DatabaseName                  string
	DatabaseSSLMode               string
	DatabaseMaxOpenConns          int
	DatabaseMaxIdleConns          int
	DatabaseConnMaxLifetime       time.Duration
	DatabaseMigrationFolderPath   string
	DatabaseMigrationVersion      int
	DatabaseMigrationForce        int
	DatabaseMigrationAutoRollback bool

	// Redis (cross-process writer lock)
	RedisEnabled     bool
	RedisHost        string
	RedisPort        int
	RedisPassword    string
	RedisDB          int
	RedisLockKey     string
	RedisLockTTL     time.Duration
	RedisLockTimeout time.Duration

	// Kafka
	KafkaBrokers         []string
	KafkaProducerEnabled bool
	KafkaOutputTopic     string
	KafkaBatchSize       int
	KafkaBatchTimeout    int
	KafkaRequiredAcks    int
	KafkaCompression     string
	KafkaConsumerEnabled bool
	KafkaInputTopic      string
	KafkaConsumerGroup   string

	// Tracing
	TracingEnabled  bool
	TracingEndpoint string
	TracingProtocol string

	// Aggregation
	AggregationEnabled       bool
	PrimaryHitLimit          int
	SecondaryHitLimit        int
	SuggestionPrefixHitLimit int
	ReadOnlyAccountTypes     []string
	PhotoPriorities          map[string]int
}

var defaults = map[string]any{
	"APP_NAME":                          "fern-api",
	"PORT":                              3004,
	"LOG_LEVEL":                         "info",
	"PRETTY_LOGS":                       false,
	"HTTP_SERVER_WRITE_TIMEOUT_SECONDS": 10,
	"HTTP_SERVER_READ_TIMEOUT_SECONDS":  10,
	"HTTP_SERVER_IDLE_TIMEOUT_SECONDS":  10,
	"SHUTDOWN_TIMEOUT_SECONDS":          15,
	"STARTUP_MAX_ATTEMPTS":              5,

	"DB_HOST":                    "localhost",
	"DB_PORT":                    "5432",
	"DB_USER_NAME":               "",
	"DB_PASSWORD":                "",
	"DB_NAME":                    "fern",
	"DB_SSL_MODE":                "disable",
	"DB_MAX_OPEN_CONNS":          25,
	"DB_MAX_IDLE_CONNS":          10,
	"DB_CONN_MAX_LIFETIME":       "10s",
	"DB_MIGRATION_FOLDER_PATH":   "db/pg",
	"DB_MIGRATION_VERSION":       0,
	"DB_MIGRATION_FORCE":         0,
	"DB_MIGRATION_AUTO_ROLLBACK": true,

	"REDIS_ENABLED":      false,
	"REDIS_HOST":         "localhost",
	"REDIS_PORT":         6379,
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"REDIS_LOCK_KEY":     "aggregation-writer",
	"REDIS_LOCK_TTL":     "30s",
	"REDIS_LOCK_TIMEOUT": "10s",

	"KAFKA_BROKERS":          "localhost:9092",
	"KAFKA_PRODUCER_ENABLED": true,
	"KAFKA_OUTPUT_TOPIC":     "aggregate-events",
	"KAFKA_BATCH_SIZE":       100,
	"KAFKA_BATCH_TIMEOUT_MS": 100,
	"KAFKA_REQUIRED_ACKS":    1,
	"KAFKA_COMPRESSION":      "snappy",
	"KAFKA_CONSUMER_ENABLED": false,
	"KAFKA_INPUT_TOPIC":      "raw-record-changes",
	"KAFKA_CONSUMER_GROUP":   "fern-consumer",

	"TRACING_ENABLED":  false,
	"TRACING_ENDPOINT": "localhost:4317",
	"TRACING_PROTOCOL": "grpc",

	"AGGREGATION_ENABLED":         true,
	"PRIMARY_HIT_LIMIT":           0,
	"SECONDARY_HIT_LIMIT":         0,
	"SUGGESTION_PREFIX_HIT_LIMIT": 0,
	"READ_ONLY_ACCOUNT_TYPES":     "",
	"PHOTO_PRIORITIES":            "",
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Wrap(err, "failed to load .env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	photoPriorities, err := ParsePhotoPriorities(v.GetString("PHOTO_PRIORITIES"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppName:                       v.GetString("APP_NAME"),
		Port:                          v.GetInt("PORT"),
		LogLevel:                      v.GetString("LOG_LEVEL"),
		PrettyLogs:                    v.GetBool("PRETTY_LOGS"),
		HttpServerWriteTimeoutSeconds: v.GetInt("HTTP_SERVER_WRITE_TIMEOUT_SECONDS"),
		HttpServerReadTimeoutSeconds:  v.GetInt("HTTP_SERVER_READ_TIMEOUT_SECONDS"),
		HttpServerIdleTimeoutSeconds:  v.GetInt("HTTP_SERVER_IDLE_TIMEOUT_SECONDS"),
		ShutdownTimeoutSeconds:        v.GetInt("SHUTDOWN_TIMEOUT_SECONDS"),
		StartupMaxAttempts:            v.GetInt("STARTUP_MAX_ATTEMPTS"),

		DatabaseHost:                  v.GetString("DB_HOST"),
		DatabasePort:                  v.GetString("DB_PORT"),
		DatabaseUserName:              v.GetString("DB_USER_NAME"),
		DatabasePassword:              v.GetString("DB_PASSWORD"),
		DatabaseName:                  v.GetString("DB_NAME"),
		DatabaseSSLMode:               v.GetString("DB_SSL_MODE"),
		DatabaseMaxOpenConns:          v.GetInt("DB_MAX_OPEN_CONNS"),
		DatabaseMaxIdleConns:          v.GetInt("DB_MAX_IDLE_CONNS"),
		DatabaseConnMaxLifetime:       v.GetDuration("DB_CONN_MAX_LIFETIME"),
		DatabaseMigrationFolderPath:   v.GetString("DB_MIGRATION_FOLDER_PATH"),
		DatabaseMigrationVersion:      v.GetInt("DB_MIGRATION_VERSION"),
		DatabaseMigrationForce:        v.GetInt("DB_MIGRATION_FORCE"),
		DatabaseMigrationAutoRollback: v.GetBool("DB_MIGRATION_AUTO_ROLLBACK"),

		RedisEnabled:     v.GetBool("REDIS_ENABLED"),
		RedisHost:        v.GetString("REDIS_HOST"),
		RedisPort:        v.GetInt("REDIS_PORT"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		RedisLockKey:     v.GetString("REDIS_LOCK_KEY"),
		RedisLockTTL:     v.GetDuration("REDIS_LOCK_TTL"),
		RedisLockTimeout: v.GetDuration("REDIS_LOCK_TIMEOUT"),

		KafkaBrokers:         splitList(v.GetString("KAFKA_BROKERS")),
		KafkaProducerEnabled: v.GetBool("KAFKA_PRODUCER_ENABLED"),
		KafkaOutputTopic:     v.GetString("KAFKA_OUTPUT_TOPIC"),
		KafkaBatchSize:       v.GetInt("KAFKA_BATCH_SIZE"),
		KafkaBatchTimeout:    v.GetInt("KAFKA_BATCH_TIMEOUT_MS"),
		KafkaRequiredAcks:    v.GetInt("KAFKA_REQUIRED_ACKS"),
		KafkaCompression:     v.GetString("KAFKA_COMPRESSION"),
		KafkaConsumerEnabled: v.GetBool("KAFKA_CONSUMER_ENABLED"),
		KafkaInputTopic:      v.GetString("KAFKA_INPUT_TOPIC"),
		KafkaConsumerGroup:   v.GetString("KAFKA_CONSUMER_GROUP"),

		TracingEnabled:  v.GetBool("TRACING_ENABLED"),
		TracingEndpoint: v.GetString("TRACING_ENDPOINT"),
		TracingProtocol: v.GetString("TRACING_PROTOCOL"),

		AggregationEnabled:       v.GetBool("AGGREGATION_ENABLED"),
		PrimaryHitLimit:          v.GetInt("PRIMARY_HIT_LIMIT"),
		SecondaryHitLimit:        v.GetInt("SECONDARY_HIT_LIMIT"),
		SuggestionPrefixHitLimit: v.GetInt("SUGGESTION_PREFIX_HIT_LIMIT"),
		ReadOnlyAccountTypes:     splitList(v.GetString("READ_ONLY_ACCOUNT_TYPES")),
		PhotoPriorities:          photoPriorities,
	}, nil
}

// DatabaseDSN builds the lib/pq connection string.
func (c Config) DatabaseDSN() string {
	return "host=" + c.DatabaseHost +
		" port=" + c.DatabasePort +
		" user=" + c.DatabaseUserName +
		" password=" + c.DatabasePassword +
		" dbname=" + c.DatabaseName +
		" sslmode=" + c.DatabaseSSLMode
}

// ParsePhotoPriorities parses "type:priority,type:priority".
func ParsePhotoPriorities(raw string) (map[string]int, error) {
	priorities := make(map[string]int)
	for _, entry := range splitList(raw) {
		accountType, value, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(accountType) == "" {
			return nil, errors.Errorf("invalid photo priority %q", entry)
		}
		priority, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid photo priority %q", entry)
		}
		priorities[strings.TrimSpace(accountType)] = priority
	}
	return priorities, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
