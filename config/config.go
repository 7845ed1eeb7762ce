package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	Token      TokenConfig
	Password   PasswordConfig
	Mail       MailConfig
	RabbitMQ   RabbitMQConfig
	PubSub     PubSubConfig
	Storage    StorageConfig
	Minio      MinioConfig
	GCS        GCSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// TokenConfig carries the signing secrets and lifetimes for the two token
// kinds. Access and refresh tokens use distinct secrets.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// PasswordConfig controls the bcrypt work factor and the strength policy
// applied to new passwords.
type PasswordConfig struct {
	BcryptCost    int
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// MailConfig selects the outbound mail transport ("smtp", "rabbitmq" or
// "pubsub") and carries the SMTP endpoint used by the direct sender and
// the mail worker.
type MailConfig struct {
	Transport    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
	Queue        string
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// StorageConfig selects the avatar object-storage backend ("minio" or "gcs").
type StorageConfig struct {
	Backend string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "mernauth"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "mernauth_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	tokenConfig := TokenConfig{
		AccessSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
		RefreshSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
		AccessTTL:     getEnvDuration("ACCESS_TOKEN_EXPIRE_TIME", 30*time.Minute),
		RefreshTTL:    getEnvDuration("REFRESH_TOKEN_EXPIRE_TIME", 10*24*time.Hour),
	}

	passwordConfig := PasswordConfig{
		BcryptCost:    getEnvInt("BCRYPT_COST", 10),
		MinLength:     getEnvInt("PASSWORD_MIN_LENGTH", 8),
		RequireUpper:  getEnvBool("PASSWORD_REQUIRE_UPPER", true),
		RequireLower:  getEnvBool("PASSWORD_REQUIRE_LOWER", true),
		RequireDigit:  getEnvBool("PASSWORD_REQUIRE_DIGIT", true),
		RequireSymbol: getEnvBool("PASSWORD_REQUIRE_SYMBOL", true),
	}

	mailConfig := MailConfig{
		Transport:    getEnv("MAIL_TRANSPORT", "smtp"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 465),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromAddress:  getEnv("SMTP_FROM", ""),
		Queue:        getEnv("MAIL_QUEUE", "password-reset-email"),
	}

	rabbitConfig := RabbitMQConfig{
		URL:             getEnv("RABBITMQ_URL", ""),
		QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
		QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
		PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH_COUNT", 8),
	}

	pubsubConfig := PubSubConfig{
		ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
		CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
	}

	minioConfig := MinioConfig{
		Endpoint:  getEnv("MINIO_ENDPOINT", ""),
		AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: getEnv("MINIO_SECRET_KEY", ""),
		Bucket:    getEnv("MINIO_BUCKET", "avatars"),
		UseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}

	gcsConfig := GCSConfig{
		Bucket:          getEnv("GCS_BUCKET", ""),
		ProjectID:       getEnv("GCS_PROJECT_ID", ""),
		CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		Token:      tokenConfig,
		Password:   passwordConfig,
		Mail:       mailConfig,
		RabbitMQ:   rabbitConfig,
		PubSub:     pubsubConfig,
		Storage:    StorageConfig{Backend: getEnv("STORAGE_BACKEND", "minio")},
		Minio:      minioConfig,
		GCS:        gcsConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(valueStr)
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseDuration parses a time.Duration string, additionally accepting a
// trailing "d" day unit (e.g. "10d") as used by the token TTL settings.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(days * 24 * float64(time.Hour)), nil
	}
	return time.ParseDuration(s)
}
