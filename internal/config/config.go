package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer        string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL       string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience      string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int      `mapstructure:"RATE_LIMIT_BURST"`
	ClaimNumberPrefix string   `mapstructure:"CLAIM_NUMBER_PREFIX"`
	TimelyFilingDays  int      `mapstructure:"TIMELY_FILING_DAYS"`
	BillingNPI        string   `mapstructure:"BILLING_NPI"`
	BillingTaxID      string   `mapstructure:"BILLING_TAX_ID"`
	OrganizationName  string   `mapstructure:"ORGANIZATION_NAME"`
	PayerID           string   `mapstructure:"PAYER_ID"`
	PayerName         string   `mapstructure:"PAYER_NAME"`
	ClearinghouseMode string   `mapstructure:"CLEARINGHOUSE_MODE"`
	ClearinghouseURL  string   `mapstructure:"CLEARINGHOUSE_URL"`
	ClearinghouseKey  string   `mapstructure:"CLEARINGHOUSE_API_KEY"`
	ERAParserMode     string   `mapstructure:"ERA_PARSER_MODE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CLAIM_NUMBER_PREFIX", "CLM")
	v.SetDefault("TIMELY_FILING_DAYS", 95)
	v.SetDefault("ORGANIZATION_NAME", "Brightpath Behavioral Services")
	v.SetDefault("PAYER_ID", "MDMEDICAID")
	v.SetDefault("PAYER_NAME", "MARYLAND MEDICAID")
	v.SetDefault("CLEARINGHOUSE_MODE", "simulated")
	v.SetDefault("ERA_PARSER_MODE", "x12")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("CLAIM_NUMBER_PREFIX")
	v.BindEnv("TIMELY_FILING_DAYS")
	v.BindEnv("BILLING_NPI")
	v.BindEnv("BILLING_TAX_ID")
	v.BindEnv("ORGANIZATION_NAME")
	v.BindEnv("PAYER_ID")
	v.BindEnv("PAYER_NAME")
	v.BindEnv("CLEARINGHOUSE_MODE")
	v.BindEnv("CLEARINGHOUSE_URL")
	v.BindEnv("CLEARINGHOUSE_API_KEY")
	v.BindEnv("ERA_PARSER_MODE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production real
// JWT authentication must be configured, and an http clearinghouse needs an
// endpoint and credentials.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthIssuer == "" {
		return fmt.Errorf(
			"AUTH_ISSUER must be set when ENV is \"production\". " +
				"Refusing to start without authentication configuration")
	}

	switch c.ClearinghouseMode {
	case "simulated":
		if c.IsProduction() {
			log.Println("WARNING: CLEARINGHOUSE_MODE=simulated in production; claims will not reach a payer")
		}
	case "http":
		if c.ClearinghouseURL == "" {
			return fmt.Errorf("CLEARINGHOUSE_URL is required when CLEARINGHOUSE_MODE is \"http\"")
		}
		if c.ClearinghouseKey == "" {
			return fmt.Errorf("CLEARINGHOUSE_API_KEY is required when CLEARINGHOUSE_MODE is \"http\"")
		}
	default:
		return fmt.Errorf("CLEARINGHOUSE_MODE must be \"simulated\" or \"http\", got %q", c.ClearinghouseMode)
	}

	switch c.ERAParserMode {
	case "", "x12":
	case "fixture":
		if c.IsProduction() {
			log.Println("WARNING: ERA_PARSER_MODE=fixture in production; remittance imports will be fabricated")
		}
	default:
		return fmt.Errorf("ERA_PARSER_MODE must be \"x12\" or \"fixture\", got %q", c.ERAParserMode)
	}

	if c.TimelyFilingDays <= 0 {
		return fmt.Errorf("TIMELY_FILING_DAYS must be positive, got %d", c.TimelyFilingDays)
	}

	if c.IsProduction() {
		if c.BillingNPI == "" {
			return fmt.Errorf("BILLING_NPI is required in production")
		}
		if len(c.BillingNPI) != 10 {
			return fmt.Errorf("BILLING_NPI must be 10 digits, got %q", c.BillingNPI)
		}
	}

	return nil
}
