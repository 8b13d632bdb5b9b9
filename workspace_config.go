package meshstate

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/meshstate/config"
	"github.com/hupe1980/meshstate/logging"
	"github.com/hupe1980/meshstate/model"
	"github.com/hupe1980/meshstate/model/anthropic"
	"github.com/hupe1980/meshstate/model/openai"
	"github.com/hupe1980/meshstate/unit"
)

// NewFromConfig builds a Workspace, its logger, its model and its units from
// cfg. optFns are applied after the configuration and may override it.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*Workspace, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	m, err := newModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	fromConfig := func(o *Options) {
		o.ID = cfg.Workspace.ID
		o.Actor = cfg.Workspace.Actor
		o.Seed = cfg.Workspace.Seed
		o.Logger = logger
		o.AsyncEvents = cfg.Events.Async
		o.EventBufferSize = cfg.Events.BufferSize
		o.LogEvents = cfg.Events.Log
		o.MaxConcurrentCalls = cfg.Workspace.MaxConcurrentCalls
		o.CallTimeout = cfg.Model.Timeout
		if cfg.Metrics.Enabled {
			o.MetricsRegisterer = prometheus.DefaultRegisterer
			o.MetricsNamespace = cfg.Metrics.Namespace
		}
	}

	w, err := New(append([]func(o *Options){fromConfig}, optFns...)...)
	if err != nil {
		return nil, err
	}

	for _, uc := range cfg.Units {
		if err := w.Register(&unit.Unit{
			Name:         uc.Name,
			Description:  uc.Description,
			Prompt:       uc.Prompt,
			Scope:        uc.Scope,
			ContextScope: uc.ContextScope,
			Model:        m,
		}); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return w, nil
}

func newLogger(cfg *config.Config) (logging.Logger, error) {
	if cfg.Logging.Backend == "zap" {
		l, err := logging.NewZapLogger(cfg.LogLevel(), cfg.Logging.Format)
		if err != nil {
			return nil, fmt.Errorf("create zap logger: %w", err)
		}
		return l, nil
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  cfg.LogLevel(),
		Format: cfg.Logging.Format,
	}).WithComponent("meshstate"), nil
}

func newModel(mc config.ModelConfig) (model.Model, error) {
	switch mc.Provider {
	case config.ProviderMock:
		return model.NewMockModel(mc.Name), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if mc.Name != "" {
				o.Model = mc.Name
			}
			o.Temperature = mc.Temperature
			if mc.MaxTokens > 0 {
				o.MaxCompletionTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if mc.Name != "" {
				o.Model = anthropic.ModelName(mc.Name)
			}
			o.Temperature = mc.Temperature
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
			o.APIKey = mc.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", mc.Provider)
	}
}
