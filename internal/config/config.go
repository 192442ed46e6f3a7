package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int

	DBDriver    string
	DatabaseURL string

	JWTSecret         []byte
	JWTExpirationMins int

	LogLevel string
	LogFile  string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	Payment PaymentConfig
}

type PaymentConfig struct {
	Currency string

	MulticardAppID    string
	MulticardSecret   string
	MulticardTestMode bool
	MulticardStoreID  int
	MulticardBaseURL  string

	ReturnURL   string
	CallbackURL string
}

// UseMulticard reports whether the remote gateway credentials are present.
// Without them checkout runs against the mock gateway.
func (p PaymentConfig) UseMulticard() bool {
	return p.MulticardAppID != ""
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),

		DBDriver:    EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:         []byte(os.Getenv("JWT_SECRET")),
		JWTExpirationMins: EnvIntDefault("JWT_EXPIRATION_MINUTES", 30),

		LogLevel: os.Getenv("LOG_LEVEL"),
		LogFile:  os.Getenv("LOG_FILE"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		Payment: PaymentConfig{
			Currency: EnvDefault("PAYMENT_CURRENCY", "UZS"),

			MulticardAppID:    os.Getenv("MULTICARD_APP_ID"),
			MulticardSecret:   os.Getenv("MULTICARD_SECRET"),
			MulticardTestMode: EnvBoolDefault("MULTICARD_TEST_MODE", true),
			MulticardStoreID:  EnvIntDefault("MULTICARD_STORE_ID", 6),
			MulticardBaseURL:  os.Getenv("MULTICARD_BASE_URL"),

			ReturnURL:   EnvDefault("PAYMENT_RETURN_URL", "http://localhost:8080/"),
			CallbackURL: EnvDefault("PAYMENT_CALLBACK_URL", "http://localhost:8080/checkout/webhook"),
		},
	}

	MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	if cfg.DBDriver == "postgres" {
		MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	}
	if cfg.Payment.UseMulticard() {
		MustNonEmpty(cfg.Payment.MulticardSecret, "MULTICARD_SECRET")
	}

	return cfg
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
