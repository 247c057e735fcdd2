package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/flarexio/ragblade/vector"
)

type Config struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`

	// Port is the gRPC port, not the REST port.
	Port int `yaml:"port"`

	APIKey string `yaml:"apiKey"`
	UseTLS bool   `yaml:"useTLS"`

	Vector vector.Config `yaml:"-"`
}

func (cfg *Config) ApplyDefaults() {
	cfg.Vector.ApplyDefaults()

	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	if cfg.Port == 0 {
		cfg.Port = 6334
	}
}

func (cfg Config) Validate() error {
	if err := cfg.Vector.Validate(); err != nil {
		return err
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: invalid qdrant port %d", vector.ErrConfiguration, cfg.Port)
	}

	return nil
}

func distanceOf(m vector.Metric) qdrant.Distance {
	switch m {
	case vector.MetricDotProduct:
		return qdrant.Distance_Dot
	case vector.MetricEuclidean:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}
