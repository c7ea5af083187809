package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Govind-619/checkout-core/utils"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port string
	Env  string

	// StoreBackend selects the reservation/ledger implementation:
	// postgres, mysql, redis or memory.
	StoreBackend string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr string

	ReservationTTL    time.Duration
	SweepInterval     time.Duration
	SweepBatchSize    int
	AbuseScanInterval time.Duration

	JWTSecret        string
	SessionSecret    string
	InternalAPIToken string

	KafkaBrokers []string
	KafkaTopic   string

	JaegerEndpoint string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AlertEmail   string

	SeedFile string
}

// LoadConfig loads configuration from environment variables.
// A missing .env file is not an error; the process environment is used as is.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.LogWarn("could not read .env file: %v", err)
	}

	cfg := &Config{
		Port:         getEnv("PORT", utils.DefaultPort),
		Env:          getEnv("ENV", "development"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "postgres")),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "checkout"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		SessionSecret:    getEnv("SESSION_SECRET", "secret"),
		InternalAPIToken: os.Getenv("INTERNAL_API_TOKEN"),

		KafkaTopic:     getEnv("KAFKA_TOPIC", "checkout-events"),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		AlertEmail:   os.Getenv("ALERT_EMAIL"),

		SeedFile: os.Getenv("SEED_FILE"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	// a SQL store backend names its own driver
	if cfg.StoreBackend == "postgres" || cfg.StoreBackend == "mysql" {
		cfg.DBDriver = cfg.StoreBackend
	}

	var err error
	if cfg.ReservationTTL, err = getDuration("RESERVATION_TTL", utils.DefaultReservationTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", utils.DefaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.AbuseScanInterval, err = getDuration("ABUSE_SCAN_INTERVAL", utils.DefaultAbuseScanPeriod); err != nil {
		return nil, err
	}
	if cfg.SweepBatchSize, err = getInt("SWEEP_BATCH_SIZE", utils.DefaultSweepBatchSize); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants between settings.
func (c *Config) Validate() error {
	if c.ReservationTTL <= 0 {
		return errInvalid("RESERVATION_TTL must be positive")
	}
	if c.SweepInterval <= 0 || c.SweepInterval >= c.ReservationTTL {
		return errInvalid("SWEEP_INTERVAL must be positive and shorter than RESERVATION_TTL")
	}
	if c.SweepBatchSize <= 0 {
		return errInvalid("SWEEP_BATCH_SIZE must be positive")
	}
	switch c.StoreBackend {
	case "postgres", "mysql", "redis", "memory":
	default:
		return errInvalid("unknown STORE_BACKEND " + c.StoreBackend)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

type configError string

func (e configError) Error() string { return "config: " + string(e) }

func errInvalid(msg string) error { return configError(msg) }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errInvalid(key + ": " + err.Error())
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errInvalid(key + ": " + err.Error())
	}
	return n, nil
}
