package chromem

import (
	"fmt"

	"github.com/flarexio/ragblade/vector"
)

type Config struct {
	// Persistent stores collections as files under Path instead of memory only.
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
	Compress   bool   `yaml:"compress"`

	// Concurrency bounds the parallel document writes of a single Add.
	Concurrency int `yaml:"concurrency"`

	Vector vector.Config `yaml:"-"`
}

func (cfg *Config) ApplyDefaults() {
	cfg.Vector.ApplyDefaults()

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
}

func (cfg Config) Validate() error {
	if err := cfg.Vector.Validate(); err != nil {
		return err
	}

	// chromem-go normalizes every embedding and ranks by cosine similarity.
	if cfg.Vector.Metric != vector.MetricCosine {
		return fmt.Errorf("%w: chromem only supports the %s metric", vector.ErrConfiguration, vector.MetricCosine)
	}

	if cfg.Persistent && cfg.Path == "" {
		return fmt.Errorf("%w: path required for a persistent chromem db", vector.ErrConfiguration)
	}

	return nil
}
