package pinecone

import (
	"fmt"
	"time"

	"github.com/flarexio/ragblade/vector"
)

type Config struct {
	// APIKey authenticates against the Pinecone control and data planes.
	APIKey string `yaml:"apiKey"`

	// Host overrides the control plane URL, mostly for local emulators.
	Host string `yaml:"host"`

	// Environment selects a pod-based index when set (e.g. "us-east1-gcp").
	// Otherwise a serverless index is created in Cloud/Region.
	Environment string `yaml:"environment"`
	PodType     string `yaml:"podType"`
	Cloud       string `yaml:"cloud"`
	Region      string `yaml:"region"`

	Namespace string `yaml:"namespace"`

	// ReadyTimeout bounds the wait for an index to become ready or to
	// disappear after a delete. PollInterval is the delay between checks.
	ReadyTimeout time.Duration `yaml:"readyTimeout"`
	PollInterval time.Duration `yaml:"pollInterval"`

	Vector vector.Config `yaml:"-"`
}

func (cfg *Config) ApplyDefaults() {
	cfg.Vector.ApplyDefaults()

	if cfg.PodType == "" {
		cfg.PodType = "p1.x1"
	}

	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}

	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 5 * time.Minute
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
}

func (cfg Config) Validate() error {
	if err := cfg.Vector.Validate(); err != nil {
		return err
	}

	if cfg.APIKey == "" {
		return fmt.Errorf("%w: pinecone api key required", vector.ErrConfiguration)
	}

	return nil
}

func (cfg Config) serverless() bool {
	return cfg.Environment == ""
}
