package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DB struct {
	DbHOST       string
	DbPORT       string
	DbUSER       string
	DbPASSWORD   string
	DbNAME       string
	DbSSLMODE    string
	DbMIGRATIONS string
}

type MinIO struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Region     string
	URLExpiry  time.Duration
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

type Upload struct {
	MaxSize             int64
	AllowedMimePrefixes []string
}

type Throttle struct {
	Rate        float64
	Burst       int
	UploadRate  float64
	UploadBurst int
}

type Idempotency struct {
	TTL       time.Duration
	Namespace string
}

type Variants struct {
	Stream      string
	Group       string
	Consumer    string
	Workers     int
	MaxAttempts int
	MaxLen      int64
	Block       time.Duration
	BackoffBase time.Duration
}

type Config struct {
	ServerPort         int
	LogLevel           string
	DB                 DB
	MinIO              MinIO
	Redis              Redis
	Upload             Upload
	Throttle           Throttle
	Idempotency        Idempotency
	Variants           Variants
	MediaBaseURL       string
	JWTSecretKey       string
	MembershipCacheTTL time.Duration
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}

// parseSize accepts plain byte counts as well as KB/MB/GB suffixes ("10MB").
func parseSize(value string, fallback int64) int64 {
	v := strings.ToUpper(strings.TrimSpace(value))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(v, unit.suffix) {
			multiplier = unit.mult
			v = strings.TrimSpace(strings.TrimSuffix(v, unit.suffix))
			break
		}
	}

	size, err := strconv.ParseInt(v, 10, 64)
	if err != nil || size <= 0 {
		return fallback
	}
	return size * multiplier
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadDB() DB {
	return DB{
		DbHOST:       getEnv("DB_HOST", "localhost"),
		DbPORT:       getEnv("DB_PORT", "5432"),
		DbUSER:       getEnv("DB_USER", "postgres"),
		DbPASSWORD:   getEnv("DB_PASSWORD", "password"),
		DbNAME:       getEnv("DB_NAME", "images"),
		DbSSLMODE:    getEnv("DB_SSLMODE", "disable"),
		DbMIGRATIONS: getEnv("DB_MIGRATIONS", "migrations/001_create_tables.sql"),
	}
}

func LoadMinIO() MinIO {
	return MinIO{
		Endpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		BucketName: getEnv("MINIO_BUCKET_NAME", "images"),
		UseSSL:     getEnvBool("MINIO_USE_SSL", false),
		Region:     getEnv("MINIO_REGION", "us-east-1"),
		URLExpiry:  parseDuration(getEnv("MINIO_URL_EXPIRY", "168h"), 168*time.Hour),
	}
}

func LoadRedis() Redis {
	return Redis{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

func LoadUpload() Upload {
	return Upload{
		MaxSize:             parseSize(getEnv("UPLOAD_MAX_SIZE", "10MB"), 10<<20),
		AllowedMimePrefixes: splitList(getEnv("UPLOAD_ALLOWED_MIME_PREFIXES", "image/")),
	}
}

func LoadThrottle() Throttle {
	return Throttle{
		Rate:        getEnvAsFloat("THROTTLE_RATE", 5),
		Burst:       getEnvAsInt("THROTTLE_BURST", 10),
		UploadRate:  getEnvAsFloat("THROTTLE_UPLOAD_RATE", 1),
		UploadBurst: getEnvAsInt("THROTTLE_UPLOAD_BURST", 5),
	}
}

func LoadVariants() Variants {
	hostname, _ := os.Hostname()
	return Variants{
		Stream:      getEnv("VARIANT_STREAM", "images:variants"),
		Group:       getEnv("VARIANT_GROUP", "variant-workers"),
		Consumer:    getEnv("VARIANT_CONSUMER", "worker-"+hostname),
		Workers:     getEnvAsInt("VARIANT_WORKERS", 2),
		MaxAttempts: getEnvAsInt("VARIANT_MAX_ATTEMPTS", 3),
		MaxLen:      int64(getEnvAsInt("VARIANT_STREAM_MAXLEN", 10000)),
		Block:       parseDuration(getEnv("VARIANT_BLOCK", "5s"), 5*time.Second),
		BackoffBase: parseDuration(getEnv("VARIANT_BACKOFF", "2s"), 2*time.Second),
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	return &Config{
		ServerPort: getEnvAsInt("SERVER_PORT", 8080),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DB:         LoadDB(),
		MinIO:      LoadMinIO(),
		Redis:      LoadRedis(),
		Upload:     LoadUpload(),
		Throttle:   LoadThrottle(),
		Idempotency: Idempotency{
			TTL:       parseDuration(getEnv("IDEMPOTENCY_TTL", "24h"), 24*time.Hour),
			Namespace: getEnv("IDEMPOTENCY_NAMESPACE", "idem"),
		},
		Variants:           LoadVariants(),
		MediaBaseURL:       strings.TrimSuffix(getEnv("MEDIA_BASE_URL", ""), "/"),
		JWTSecretKey:       getEnv("JWT_SECRET_KEY", ""),
		MembershipCacheTTL: parseDuration(getEnv("MEMBERSHIP_CACHE_TTL", "60s"), time.Minute),
	}
}
