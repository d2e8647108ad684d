package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration for the API server.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      string
	JWTSigningKey string
	SessionTTL    time.Duration
	// MaxUploadBytes caps a multipart upload (document + selfie).
	MaxUploadBytes int64
	// MigrateOnBoot applies the embedded schema before serving.
	MigrateOnBoot bool

	Redis        RedisConfig
	Postgres     PostgresConfig
	Kafka        KafkaConfig
	AWS          AWSConfig
	Verification VerificationConfig
	Chat         ChatConfig
	Circuit      CircuitConfig
}

// RedisConfig configures the retrieval cache. An empty URL selects the
// in-memory cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the account store and audit outbox. An empty URL
// selects in-memory stores.
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// KafkaConfig configures the audit relay. It only runs when Postgres is also
// configured since the outbox lives there.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	RelayInterval time.Duration
}

// AWSConfig names the managed services behind each collaborator.
type AWSConfig struct {
	Region string
	// Endpoint overrides every service endpoint, e.g. for LocalStack.
	Endpoint       string
	AccountsTable  string
	DocumentBucket string
	KendraIndexID  string
	BedrockModelID string
	SenderEmail    string
	// AccountBackend is "dynamodb", "postgres" or "memory".
	AccountBackend string
}

// VerificationConfig tunes the verification coordinator.
type VerificationConfig struct {
	// FaceMatchThreshold is the similarity (0-100) a match must exceed.
	FaceMatchThreshold float64
	StepTimeout        time.Duration
	RejectExpired      bool
}

// ChatConfig tunes the chat gateway.
type ChatConfig struct {
	TopN        int
	StepTimeout time.Duration
	CacheTTL    time.Duration
	MaxTokens   int32
}

// CircuitConfig tunes the breakers around external collaborators.
type CircuitConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
}

const (
	DefaultFaceMatchThreshold = 90.0
	DefaultTopN               = 3
)

// FromEnv builds a Server config from environment variables so main stays lean.
// Defaults target local development.
func FromEnv() Server {
	return Server{
		Addr:           getString("PENNY_ADDR", ":8080"),
		Environment:    getString("PENNY_ENV", "development"),
		LogLevel:       getString("LOG_LEVEL", "info"),
		JWTSigningKey:  getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:     getDuration("SESSION_TTL", time.Hour),
		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 10<<20),
		MigrateOnBoot:  getBool("MIGRATE_ON_BOOT", true),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getInt("DATABASE_MAX_CONNS", 10)),
		},
		Kafka: KafkaConfig{
			Brokers:       getList("KAFKA_BROKERS"),
			AuditTopic:    getString("KAFKA_AUDIT_TOPIC", "penny.audit"),
			RelayInterval: getDuration("AUDIT_RELAY_INTERVAL", 2*time.Second),
		},
		AWS: AWSConfig{
			Region:         getString("AWS_REGION", "us-east-1"),
			Endpoint:       os.Getenv("AWS_ENDPOINT_URL"),
			AccountsTable:  getString("ACCOUNTS_TABLE", "anybank-accounts"),
			DocumentBucket: os.Getenv("DOCUMENT_BUCKET"),
			KendraIndexID:  os.Getenv("KENDRA_INDEX_ID"),
			BedrockModelID: getString("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
			SenderEmail:    getString("SENDER_EMAIL", "no-reply@anybank.example"),
			AccountBackend: getString("ACCOUNT_BACKEND", "memory"),
		},
		Verification: VerificationConfig{
			FaceMatchThreshold: getFloat("FACE_MATCH_THRESHOLD", DefaultFaceMatchThreshold),
			StepTimeout:        getDuration("VERIFY_STEP_TIMEOUT", 15*time.Second),
			RejectExpired:      getBool("VERIFY_REJECT_EXPIRED", true),
		},
		Chat: ChatConfig{
			TopN:        getInt("CHAT_TOP_N", DefaultTopN),
			StepTimeout: getDuration("CHAT_STEP_TIMEOUT", 20*time.Second),
			CacheTTL:    getDuration("RETRIEVAL_CACHE_TTL", 10*time.Minute),
			MaxTokens:   int32(getInt("CHAT_MAX_TOKENS", 512)),
		},
		Circuit: CircuitConfig{
			FailureThreshold: getInt("CIRCUIT_FAILURE_THRESHOLD", 5),
			SuccessThreshold: getInt("CIRCUIT_SUCCESS_THRESHOLD", 2),
			Cooldown:         getDuration("CIRCUIT_COOLDOWN", 30*time.Second),
		},
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
