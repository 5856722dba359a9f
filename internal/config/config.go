// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	MediaLocal = "local"
	MediaS3    = "s3"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"mongo"`
	MongoURI     string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB      string `env:"MONGO_DB" envDefault:"confhub"`

	JWTSecret            string        `env:"JWT_SECRET"`
	AdminTokenTTL        time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"168h"`
	UserTokenTTL         time.Duration `env:"USER_TOKEN_TTL" envDefault:"6h"`
	SpeakerTokenTTL      time.Duration `env:"SPEAKER_TOKEN_TTL" envDefault:"168h"`
	RegistrationTokenTTL time.Duration `env:"REGISTRATION_TOKEN_TTL" envDefault:"168h"`
	TOTPIssuer           string        `env:"TOTP_ISSUER" envDefault:"confhub"`

	DefaultPassword string `env:"DEFAULT_PASSWORD" envDefault:"Welcome@123"`
	SpeakerPassword string `env:"SPEAKER_PASSWORD" envDefault:"Speaker@123"`

	SMTPServer   string        `env:"SMTP_SERVER"`
	SMTPUser     string        `env:"SMTP_USER"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM"`
	MailTimeout  time.Duration `env:"MAIL_TIMEOUT" envDefault:"15s"`

	ApprovalSubject string        `env:"APPROVAL_SUBJECT" envDefault:"Registration Approved"`
	InvoicePrefix   string        `env:"INVOICE_PREFIX" envDefault:"CONF-"`
	AmountDue       string        `env:"AMOUNT_DUE" envDefault:"$300"`
	InvoiceDueIn    time.Duration `env:"INVOICE_DUE_IN" envDefault:"168h"`

	MediaBackend   string `env:"MEDIA_BACKEND" envDefault:"local"`
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"public/uploads"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`

	BcryptCost       int      `env:"BCRYPT_COST" envDefault:"10"`
	AuditBufferSize  int      `env:"AUDIT_BUFFER" envDefault:"256"`
	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads an optional .env file, then parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("Warning: .env file not found")
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	switch c.StoreBackend {
	case StoreMongo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.MediaBackend {
	case MediaLocal:
	case MediaS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET must be set for the s3 media backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend))
	}
	if c.MailTimeout <= 0 {
		errs = append(errs, errors.New("MAIL_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}
