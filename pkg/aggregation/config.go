package aggregation

import (
	"github.com/Ramsey-B/fern/pkg/matching"
)

// Config tunes the engine.
type Config struct {
	// Enabled is the initial state of the kill switch.
	Enabled                  bool
	PrimaryHitLimit          int
	SecondaryHitLimit        int
	SuggestionPrefixHitLimit int
}

func DefaultConfig() Config {
	return Config{
		Enabled:                  true,
		PrimaryHitLimit:          matching.PrimaryHitLimit,
		SecondaryHitLimit:        matching.SecondaryHitLimit,
		SuggestionPrefixHitLimit: matching.SuggestionPrefixHitLimit,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PrimaryHitLimit <= 0 {
		c.PrimaryHitLimit = d.PrimaryHitLimit
	}
	if c.SecondaryHitLimit <= 0 {
		c.SecondaryHitLimit = d.SecondaryHitLimit
	}
	if c.SuggestionPrefixHitLimit <= 0 {
		c.SuggestionPrefixHitLimit = d.SuggestionPrefixHitLimit
	}
	return c
}
