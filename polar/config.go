package polar

import (
	"strings"
	"time"
)

// Version is reported in the User-Agent header of every request.
const Version = "1.2.0"

type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

const (
	endpointSandbox    = "https://sandbox-api.polar.sh"
	endpointProduction = "https://api.polar.sh"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
)

// Config holds the credentials and transport policy for a Client. It is
// copied at construction time; mutating it afterwards has no effect on an
// existing Client.
type Config struct {
	AccessToken string        `koanf:"access_token" mapstructure:"access_token"`
	Environment Environment   `koanf:"environment" mapstructure:"environment"`
	Timeout     time.Duration `koanf:"timeout" mapstructure:"timeout"`
	// Retries is the number of timeout retries per request. Zero means
	// "use the default"; set a negative value to disable retries.
	Retries int `koanf:"retries" mapstructure:"retries"`
	// WebhookSecret is not used by the Client itself; it is carried here so a
	// single configuration block can feed both the SDK and the webhook
	// dispatcher.
	WebhookSecret string `koanf:"webhook_secret" mapstructure:"webhook_secret"`
}

func DefaultConfig() Config {
	return Config{
		Environment: EnvironmentSandbox,
		Timeout:     defaultTimeout,
		Retries:     defaultRetries,
	}
}

// Endpoint returns the API base URL for the configured environment, or an
// empty string when the environment is unknown.
func (c Config) Endpoint() string {
	switch c.Environment {
	case EnvironmentSandbox:
		return endpointSandbox
	case EnvironmentProduction:
		return endpointProduction
	default:
		return ""
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return configurationError("polar: access token is required")
	}
	if c.Endpoint() == "" {
		return configurationError("polar: invalid environment " + string(c.Environment))
	}
	return nil
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(string(c.Environment)) == "" {
		c.Environment = defaults.Environment
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.Retries == 0 {
		c.Retries = defaults.Retries
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return c
}

func (c Config) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + strings.TrimSpace(c.AccessToken),
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"User-Agent":    "go-billing/" + Version,
	}
}
