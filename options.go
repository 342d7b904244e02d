package tokentree

import (
	"github.com/goliatone/go-tokentree/orderkey"
	"github.com/goliatone/go-tokentree/pkg/activity"
)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	logger         Logger
	keys           orderkey.Generator
	activityHooks  activity.Hooks
	activityConfig activity.Config
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		activityConfig: activity.Config{Enabled: true, Channel: "tokentree"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.keys == nil {
		cfg.keys = orderkey.Base36{}
	}
	return cfg
}

// WithLogger routes store diagnostics to logger. A nil logger disables logging.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithKeyGenerator replaces the order key generator used for nodes set
// without an explicit index.
func WithKeyGenerator(generator orderkey.Generator) Option {
	return func(cfg *storeConfig) {
		cfg.keys = generator
	}
}
