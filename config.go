package identity

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config carries the signing material and token lifetimes. It is an
// explicit value injected at construction, never compiled-in state.
// Defaults mirror a short-lived access token and a week-long refresh
// token.
type Config struct {
	SigningKey string        `yaml:"signing_key" env:"IDENTITY_SIGNING_KEY" env-required:"true"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"IDENTITY_ACCESS_TTL" env-default:"20m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"IDENTITY_REFRESH_TTL" env-default:"168h"`
	Issuer     string        `yaml:"issuer" env:"IDENTITY_ISSUER" env-default:"go-identity"`
	Audience   []string      `yaml:"audience" env:"IDENTITY_AUDIENCE"`
}

// Validate rejects configurations that would mint unusable tokens.
func (c Config) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("signing key is required", goerrors.CategoryValidation)
	}
	if c.AccessTTL <= 0 {
		return goerrors.New("access token TTL must be positive", goerrors.CategoryValidation)
	}
	if c.RefreshTTL <= 0 {
		return goerrors.New("refresh token TTL must be positive", goerrors.CategoryValidation)
	}
	if c.RefreshTTL < c.AccessTTL {
		return goerrors.New("refresh token TTL must not be shorter than access TTL", goerrors.CategoryValidation)
	}
	return nil
}

// LoadConfig reads configuration from the environment, with an optional
// YAML file layered underneath.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read config file")
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read config from environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
