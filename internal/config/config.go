package config // package config loads application configuration from environment variables

import (
    "fmt"
    "strings"
    "time"

    "github.com/joho/godotenv"
    "github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable named in its envconfig tag.
type Config struct {
    Env  string `envconfig:"APP_ENV" default:"dev"`  // application environment (dev, prod)
    Port string `envconfig:"APP_PORT" default:"8080"` // HTTP port to listen on

    DBUser string `envconfig:"DB_USER" required:"true"`
    DBPass string `envconfig:"DB_PASS"` // empty allowed
    DBHost string `envconfig:"DB_HOST" default:"127.0.0.1"`
    DBPort string `envconfig:"DB_PORT" default:"3306"`
    DBName string `envconfig:"DB_NAME" required:"true"`

    JWTSecret         string `envconfig:"JWT_SECRET" required:"true"`
    AccessTTLMin      int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"60"`
    AdminEmail        string `envconfig:"ADMIN_EMAIL"`
    AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"` // bcrypt hash

    HoldTTL       time.Duration `envconfig:"HOLD_TTL" default:"15m"` // 0 disables holds
    MaxStayNights int           `envconfig:"MAX_STAY_NIGHTS" default:"30"`
    Currency      string        `envconfig:"CURRENCY" default:"INR"`

    PaymentGateway string `envconfig:"PAYMENT_GATEWAY" default:"razorpay"` // razorpay or stripe
    RazorpayKeyID  string `envconfig:"RAZORPAY_KEY_ID"`
    RazorpaySecret string `envconfig:"RAZORPAY_KEY_SECRET"`
    StripeSecret   string `envconfig:"STRIPE_SECRET_KEY"`
    StripePublic   string `envconfig:"STRIPE_PUBLISHABLE_KEY"` // returned to the checkout page

    RabbitMQURL    string        `envconfig:"RABBITMQ_URL"` // empty disables event publishing
    BookingLogPath string        `envconfig:"BOOKING_LOG_PATH" default:"logs/booking.log"`
    AsynqEnabled   bool          `envconfig:"ASYNQ_ENABLED" default:"true"`
    HoldSweepEvery string        `envconfig:"HOLD_SWEEP_CRON" default:"@every 1m"` // empty disables the sweep
    ShutdownGrace  time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`
    CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load reads an optional .env file and then the process environment into
// a Config.  Missing required variables and inconsistent gateway settings
// are reported as errors.
func Load() (Config, error) {
    // .env is optional; real environment variables take precedence.
    _ = godotenv.Load()
    var c Config
    if err := envconfig.Process("", &c); err != nil {
        return Config{}, err
    }
    if err := c.validate(); err != nil {
        return Config{}, err
    }
    return c, nil
}

func (c *Config) validate() error {
    c.PaymentGateway = strings.ToLower(strings.TrimSpace(c.PaymentGateway))
    switch c.PaymentGateway {
    case "razorpay":
        if c.RazorpayKeyID == "" || c.RazorpaySecret == "" {
            return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required for the razorpay gateway")
        }
    case "stripe":
        if c.StripeSecret == "" {
            return fmt.Errorf("STRIPE_SECRET_KEY is required for the stripe gateway")
        }
    default:
        return fmt.Errorf("invalid PAYMENT_GATEWAY %q", c.PaymentGateway)
    }
    if c.HoldTTL < 0 {
        return fmt.Errorf("HOLD_TTL must not be negative")
    }
    if c.MaxStayNights < 1 {
        return fmt.Errorf("MAX_STAY_NIGHTS must be at least 1")
    }
    if c.AccessTTLMin < 1 {
        c.AccessTTLMin = 60
    }
    c.Currency = strings.ToUpper(c.Currency)
    return nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
    switch strings.ToLower(c.Env) {
    case "prod", "production":
        return true
    }
    return false
}
