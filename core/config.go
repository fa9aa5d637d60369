package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// Config carries the reconciliation policy knobs. Layers resolve in the
// order defaults < loaded < runtime through the options resolver.
type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// FloorTier is where accounts land when a subscription lapses.
	FloorTier string `koanf:"floor_tier" mapstructure:"floor_tier"`
	// FallbackTier is assumed when a product id maps to no known tier.
	FallbackTier           string        `koanf:"fallback_tier" mapstructure:"fallback_tier"`
	WelcomeCredits         float64       `koanf:"welcome_credits" mapstructure:"welcome_credits"`
	AlertSuppressionWindow time.Duration `koanf:"alert_suppression_window" mapstructure:"alert_suppression_window"`
	AutoRechargeCooldown   time.Duration `koanf:"auto_recharge_cooldown" mapstructure:"auto_recharge_cooldown"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:            "billing",
		FloorTier:              TierFree,
		FallbackTier:           TierStarter,
		WelcomeCredits:         100,
		AlertSuppressionWindow: 24 * time.Hour,
		AutoRechargeCooldown:   time.Hour,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.FloorTier) == "" {
		return fmt.Errorf("core: floor_tier is required")
	}
	return nil
}

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.FloorTier) != "" {
		layer["floor_tier"] = cfg.FloorTier
	}
	if includeZero || strings.TrimSpace(cfg.FallbackTier) != "" {
		layer["fallback_tier"] = cfg.FallbackTier
	}
	if includeZero || cfg.WelcomeCredits != 0 {
		layer["welcome_credits"] = cfg.WelcomeCredits
	}
	if includeZero || cfg.AlertSuppressionWindow != 0 {
		layer["alert_suppression_window"] = cfg.AlertSuppressionWindow
	}
	if includeZero || cfg.AutoRechargeCooldown != 0 {
		layer["auto_recharge_cooldown"] = cfg.AutoRechargeCooldown
	}
	return layer
}

// ResolveConfig runs the defaults/loaded/runtime layering end to end.
func ResolveConfig(
	ctx context.Context,
	provider ConfigProvider,
	resolver OptionsResolver,
	runtime Config,
) (Config, error) {
	defaults := DefaultConfig()
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}
