// Copyright (c) Microsoft. All rights reserved.

package gptclient

import "fmt"

// Default sampling parameters, applied by [NewConfig] for any field the
// caller does not set.
const (
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 800
	DefaultTopP             = 0.95
	DefaultFrequencyPenalty = 0.0
	DefaultPresencePenalty  = 0.0
)

// Config holds the validated sampling parameters for completion
// requests. It is immutable: construct one through [NewConfig] /
// [ConfigBuilder.Build] or use [DefaultConfig]. A Config may be shared
// freely across concurrent requests.
type Config struct {
	temperature      float64
	maxTokens        int
	topP             float64
	frequencyPenalty float64
	presencePenalty  float64
	stop             []string
}

// DefaultConfig returns a Config with all fields at their defaults.
func DefaultConfig() Config {
	return Config{
		temperature:      DefaultTemperature,
		maxTokens:        DefaultMaxTokens,
		topP:             DefaultTopP,
		frequencyPenalty: DefaultFrequencyPenalty,
		presencePenalty:  DefaultPresencePenalty,
	}
}

// Temperature returns the sampling temperature in [0, 2].
func (c Config) Temperature() float64 { return c.temperature }

// MaxTokens returns the completion token limit.
func (c Config) MaxTokens() int { return c.maxTokens }

// TopP returns the nucleus-sampling probability mass in [0, 1].
func (c Config) TopP() float64 { return c.topP }

// FrequencyPenalty returns the frequency penalty in [-2, 2].
func (c Config) FrequencyPenalty() float64 { return c.frequencyPenalty }

// PresencePenalty returns the presence penalty in [-2, 2].
func (c Config) PresencePenalty() float64 { return c.presencePenalty }

// Stop returns a copy of the stop sequences, or nil if none are set.
func (c Config) Stop() []string {
	if c.stop == nil {
		return nil
	}
	out := make([]string, len(c.stop))
	copy(out, c.stop)
	return out
}

// ConfigBuilder assembles a [Config] with chained setters. Validation
// is deferred to [ConfigBuilder.Build]; an out-of-range value fails the
// build with a *[ConfigError] naming the field rather than being
// silently clamped.
type ConfigBuilder struct {
	temperature      *float64
	maxTokens        *int
	topP             *float64
	frequencyPenalty *float64
	presencePenalty  *float64
	stop             []string
}

// NewConfig returns a builder whose unset fields take the package
// defaults at Build time.
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{}
}

// Temperature sets the sampling temperature. Valid range [0, 2].
func (b *ConfigBuilder) Temperature(t float64) *ConfigBuilder {
	b.temperature = &t
	return b
}

// MaxTokens sets the completion token limit. Must be positive.
func (b *ConfigBuilder) MaxTokens(n int) *ConfigBuilder {
	b.maxTokens = &n
	return b
}

// TopP sets the nucleus-sampling probability mass. Valid range [0, 1].
func (b *ConfigBuilder) TopP(p float64) *ConfigBuilder {
	b.topP = &p
	return b
}

// FrequencyPenalty sets the frequency penalty. Valid range [-2, 2].
func (b *ConfigBuilder) FrequencyPenalty(p float64) *ConfigBuilder {
	b.frequencyPenalty = &p
	return b
}

// PresencePenalty sets the presence penalty. Valid range [-2, 2].
func (b *ConfigBuilder) PresencePenalty(p float64) *ConfigBuilder {
	b.presencePenalty = &p
	return b
}

// Stop sets the stop sequences.
func (b *ConfigBuilder) Stop(sequences ...string) *ConfigBuilder {
	b.stop = sequences
	return b
}

// Build validates every field and returns the immutable [Config].
// The first constraint violation is reported as a *[ConfigError]; no
// network call is ever made with an invalid configuration.
func (b *ConfigBuilder) Build() (Config, error) {
	cfg := DefaultConfig()

	if b.temperature != nil {
		if *b.temperature < 0 || *b.temperature > 2 {
			return Config{}, &ConfigError{
				Field:  "temperature",
				Detail: fmt.Sprintf("must be in [0, 2], got %v", *b.temperature),
			}
		}
		cfg.temperature = *b.temperature
	}
	if b.maxTokens != nil {
		if *b.maxTokens <= 0 {
			return Config{}, &ConfigError{
				Field:  "max_tokens",
				Detail: fmt.Sprintf("must be positive, got %d", *b.maxTokens),
			}
		}
		cfg.maxTokens = *b.maxTokens
	}
	if b.topP != nil {
		if *b.topP < 0 || *b.topP > 1 {
			return Config{}, &ConfigError{
				Field:  "top_p",
				Detail: fmt.Sprintf("must be in [0, 1], got %v", *b.topP),
			}
		}
		cfg.topP = *b.topP
	}
	if b.frequencyPenalty != nil {
		if *b.frequencyPenalty < -2 || *b.frequencyPenalty > 2 {
			return Config{}, &ConfigError{
				Field:  "frequency_penalty",
				Detail: fmt.Sprintf("must be in [-2, 2], got %v", *b.frequencyPenalty),
			}
		}
		cfg.frequencyPenalty = *b.frequencyPenalty
	}
	if b.presencePenalty != nil {
		if *b.presencePenalty < -2 || *b.presencePenalty > 2 {
			return Config{}, &ConfigError{
				Field:  "presence_penalty",
				Detail: fmt.Sprintf("must be in [-2, 2], got %v", *b.presencePenalty),
			}
		}
		cfg.presencePenalty = *b.presencePenalty
	}
	if len(b.stop) > 0 {
		cfg.stop = make([]string, len(b.stop))
		copy(cfg.stop, b.stop)
	}

	return cfg, nil
}
