package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// CommissionTier maps a designer's cumulative lifetime earnings to the
// commission rate (percent of order total) they receive at that level.
type CommissionTier struct {
	MinLifetimeEarnings float64
	Rate                float64
}

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	Auth0Domain        string
	Auth0Audience      string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	RedisURL           string
	KafkaBrokers       []string
	KafkaOrderTopic    string
	SMTPHost           string
	SMTPPort           string
	SMTPUsername       string
	SMTPPassword       string
	MailFrom           string
	CommissionTiers    []CommissionTier
	MinPayoutAmount    float64
	EarningsHoldDays   int
	VerificationTTLMin int
	LogLevel           string
}

var configInstance *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In production, environment variables are set directly
			// so it's okay if .env files don't exist
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	tiers, err := parseCommissionTiers(getEnv("COMMISSION_TIERS", "0:80,50000:85,200000:90"))
	if err != nil {
		return nil, err
	}

	minPayout, err := strconv.ParseFloat(getEnv("MIN_PAYOUT_AMOUNT", "500"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_PAYOUT_AMOUNT: %w", err)
	}

	holdDays, err := strconv.Atoi(getEnv("EARNINGS_HOLD_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid EARNINGS_HOLD_DAYS: %w", err)
	}

	verifyTTL, err := strconv.Atoi(getEnv("VERIFICATION_CODE_TTL_MINUTES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFICATION_CODE_TTL_MINUTES: %w", err)
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              env,
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		KafkaBrokers:       splitNonEmpty(getEnv("KAFKA_BROKERS", ""), ","),
		KafkaOrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "order.events"),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnv("SMTP_PORT", "587"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		MailFrom:           getEnv("MAIL_FROM", "DesignDen <noreply@designden.example>"),
		CommissionTiers:    tiers,
		MinPayoutAmount:    minPayout,
		EarningsHoldDays:   holdDays,
		VerificationTTLMin: verifyTTL,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	configInstance = config
	return config, nil
}

// GetConfig returns the loaded configuration instance
func GetConfig() *Config {
	return configInstance
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(c *Config) {
	configInstance = c
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// CommissionRateFor returns the commission rate for a designer with the
// given cumulative lifetime earnings. Tiers are sorted ascending; the
// highest tier whose threshold is met wins.
func (c *Config) CommissionRateFor(lifetimeEarnings float64) float64 {
	rate := 0.0
	for _, tier := range c.CommissionTiers {
		if lifetimeEarnings >= tier.MinLifetimeEarnings {
			rate = tier.Rate
		}
	}
	return rate
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// parseCommissionTiers parses a "threshold:rate,threshold:rate" list,
// e.g. "0:80,50000:85,200000:90".
func parseCommissionTiers(raw string) ([]CommissionTier, error) {
	parts := splitNonEmpty(raw, ",")
	if len(parts) == 0 {
		return nil, fmt.Errorf("COMMISSION_TIERS must define at least one tier")
	}

	tiers := make([]CommissionTier, 0, len(parts))
	for _, part := range parts {
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid commission tier %q, expected threshold:rate", part)
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid commission tier threshold %q: %w", fields[0], err)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid commission tier rate %q: %w", fields[1], err)
		}
		if rate <= 0 || rate > 100 {
			return nil, fmt.Errorf("commission rate %v out of range (0, 100]", rate)
		}
		tiers = append(tiers, CommissionTier{MinLifetimeEarnings: threshold, Rate: rate})
	}

	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinLifetimeEarnings < tiers[j].MinLifetimeEarnings
	})
	return tiers, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
