// Package config provides configuration management for the Datatrans payment service.
// Configuration can be loaded from YAML files and overridden by environment variables.
package config

import (
	"fmt"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

// Request types supported by the gateway. The value is sent with the redirect
// request and decides whether settlement is a separate call.
const (
	RequestTypeAuthorize   = "NOA"         // authorization only
	RequestTypeAutoSettle  = "CAA"         // authorization with immediate settlement
	RequestTypeConditional = "conditional" // two-phase: authorize, then settle on callback
	RequestTypeIgnore      = "ignore"      // according to the setting in the gateway admin tool
)

// Config holds all configuration for the Datatrans payment service.
// Values can be set via YAML configuration file or environment variables.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug    bool  `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	LogRecords int64 `yaml:"log_records" env:"LOG_RECORDS" env-default:"0"`
	Listen     struct {
		Type     string `yaml:"type" env:"LISTEN_TYPE" env-default:"port"`
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5100"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:""`
	} `yaml:"mongo"`
	Gateway struct {
		MerchantID string `yaml:"merchant_id" env:"MERCHANT_ID" env-default:""`
		// ServiceURL is the offsite page the customer is redirected to.
		ServiceURL string `yaml:"service_url" env:"SERVICE_URL" env-default:"https://pay.sandbox.datatrans.com/upp/jsp/upStart.jsp"`
		// TransactionURL serves merchant-initiated settle/cancel/refund requests.
		TransactionURL string `yaml:"transaction_url" env:"TRANSACTION_URL" env-default:"https://api.sandbox.datatrans.com/upp/jsp/XML_processor.jsp"`
		RequestType    string `yaml:"request_type" env:"REQUEST_TYPE" env-default:"CAA"`
		// UseAlias requests a stored-card token with every payment. A success
		// response without the token is rolled back, see internal/payments.go.
		UseAlias bool `yaml:"use_alias" env:"USE_ALIAS" env-default:"false"`
		// SecurityLevel 0 sends no security element, 1 sends the static
		// merchant control sign, 2 signs important parameters with HMAC-MD5.
		SecurityLevel int `yaml:"security_level" env:"SECURITY_LEVEL" env-default:"2"`
		// Sign is the merchant control sign, used with security level 1 only.
		Sign string `yaml:"sign" env:"MERCHANT_SIGN" env-default:""`
		// HmacKey is the active signing key, hex encoded. HmacKey2 holds the
		// previous key during rotation; callbacks signed with it still verify.
		HmacKey  string `yaml:"hmac_key" env:"HMAC_KEY" env-default:""`
		HmacKey2 string `yaml:"hmac_key_2" env:"HMAC_KEY_2" env-default:""`
		// ReturnBase is the absolute base URL of this service, used to build
		// the success/error/cancel callback addresses.
		ReturnBase string `yaml:"return_base" env:"RETURN_BASE" env-default:""`
		// ResumeURL and FailureURL are where the browser return path sends the
		// customer after a processed callback. Owned by the checkout flow.
		ResumeURL  string `yaml:"resume_url" env:"RESUME_URL" env-default:""`
		FailureURL string `yaml:"failure_url" env:"FAILURE_URL" env-default:""`
		// Remote terminal-state names reported by the transaction endpoint.
		CancelledState string `yaml:"cancelled_state" env:"CANCELLED_STATE" env-default:"cancelled"`
		RefundedState  string `yaml:"refunded_state" env:"REFUNDED_STATE" env-default:"refunded"`
		SettledState   string `yaml:"settled_state" env:"SETTLED_STATE" env-default:"settled"`
	} `yaml:"gateway"`
}

var instance *Config
var once sync.Once

// GetConfig loads configuration from the specified YAML file path.
// Configuration values can be overridden by environment variables.
// This function uses a singleton pattern and only loads the config once.
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("load config: %w; %s", err, desc)
			instance = nil
			return
		}
		if err = instance.Validate(); err != nil {
			instance = nil
		}
	})
	return instance, err
}

// Validate checks the gateway block for settings that would make every
// checkout attempt fail at request time.
func (c *Config) Validate() error {
	g := &c.Gateway
	switch g.RequestType {
	case RequestTypeAuthorize, RequestTypeAutoSettle, RequestTypeConditional, RequestTypeIgnore:
	default:
		return fmt.Errorf("unknown request type %q", g.RequestType)
	}
	if g.SecurityLevel < 0 || g.SecurityLevel > 2 {
		return fmt.Errorf("security level must be 0, 1 or 2; got %d", g.SecurityLevel)
	}
	if g.SecurityLevel == 1 && g.Sign == "" {
		return fmt.Errorf("security level 1 requires the merchant control sign")
	}
	if g.SecurityLevel == 2 && g.HmacKey == "" {
		return fmt.Errorf("security level 2 requires an HMAC key")
	}
	return nil
}

// HmacKeys returns the configured signing keys in trial order, the active key
// first. Empty slots are skipped.
func (c *Config) HmacKeys() []string {
	keys := make([]string, 0, 2)
	if c.Gateway.HmacKey != "" {
		keys = append(keys, c.Gateway.HmacKey)
	}
	if c.Gateway.HmacKey2 != "" {
		keys = append(keys, c.Gateway.HmacKey2)
	}
	return keys
}
