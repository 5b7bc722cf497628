package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Persistence
	DatabaseDSN    string `envconfig:"DATABASE_DSN"`
	UseMemoryStore bool   `envconfig:"USE_MEMORY_STORE" default:"false"`

	// Kafka
	KafkaEnabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"shipment-events"`

	// Canada Post
	CanadaPostAPIKey    string `envconfig:"CANADAPOST_API_KEY"`
	CanadaPostAccountID string `envconfig:"CANADAPOST_ACCOUNT_ID"`
	CanadaPostBaseURL   string `envconfig:"CANADAPOST_BASE_URL" default:"https://soa-gw.canadapost.ca"`
	CanadaPostEnabled   bool   `envconfig:"CANADAPOST_ENABLED" default:"true"`
	CanadaPostUseMock   bool   `envconfig:"CANADAPOST_USE_MOCK" default:"false"`

	// Cash on delivery
	CODPaymentMethods []string `envconfig:"COD_PAYMENT_METHODS" default:"cash-on-delivery"`

	// Privacy
	RedactReceiverPhone bool `envconfig:"REDACT_RECEIVER_PHONE" default:"false"`
	RedactReceiverEmail bool `envconfig:"REDACT_RECEIVER_EMAIL" default:"false"`

	// Sender address
	SenderName        string `envconfig:"SENDER_NAME"`
	SenderCompany     string `envconfig:"SENDER_COMPANY" default:"Delivro"`
	SenderStreet      string `envconfig:"SENDER_STREET"`
	SenderHouseNumber string `envconfig:"SENDER_HOUSE_NUMBER"`
	SenderCity        string `envconfig:"SENDER_CITY"`
	SenderZip         string `envconfig:"SENDER_ZIP"`
	SenderCountryCode string `envconfig:"SENDER_COUNTRY_CODE" default:"CA"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"delivro-shipment"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("canadapost.enabled", c.CanadaPostEnabled),
		attribute.Bool("kafka.enabled", c.KafkaEnabled),
		attribute.Bool("memory_store", c.UseMemoryStore),
	}
}
