package search

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider kinds accepted by NewProvider
const (
	ProviderGoogle  = "google"
	ProviderElastic = "elastic"
	ProviderNone    = "none"
)

// ProviderConfig selects and configures a search provider
type ProviderConfig struct {
	Kind          string
	GoogleAPIKey  string
	GoogleBaseURL string
	ElasticURL    string
	ElasticIndex  string
}

// NewProvider builds the configured provider. Kind "none" (or empty) returns nil, nil.
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Kind {
	case "", ProviderNone:
		return nil, nil
	case ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("google search requires an API key")
		}
		p := NewGoogleProvider(cfg.GoogleAPIKey, cfg.GoogleBaseURL)
		p.SetLogger(logger)
		return p, nil
	case ProviderElastic:
		p, err := NewElasticProvider(cfg.ElasticURL, cfg.ElasticIndex)
		if err != nil {
			return nil, err
		}
		p.SetLogger(logger)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Kind)
	}
}
