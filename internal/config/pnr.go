package config

import "fmt"

// PNRConfig bounds the reservation ids the allocator hands out.
type PNRConfig struct {
	Min        int
	Max        int
	MaxRetries int
	Mode       string // random | sequential
}

func LoadPNRConfig() PNRConfig {
	return PNRConfig{
		Min:        envInt("PNR_MIN", 100000),
		Max:        envInt("PNR_MAX", 999999),
		MaxRetries: envInt("PNR_MAX_RETRIES", 32),
		Mode:       envStr("PNR_MODE", "random"),
	}
}

func (p PNRConfig) Validate() error {
	if p.Min <= 0 || p.Max <= 0 {
		return fmt.Errorf("PNR_MIN and PNR_MAX must be positive")
	}
	if p.Min > p.Max {
		return fmt.Errorf("PNR_MIN (%d) must not exceed PNR_MAX (%d)", p.Min, p.Max)
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("PNR_MAX_RETRIES must not be negative")
	}
	if p.Mode != "random" && p.Mode != "sequential" {
		return fmt.Errorf("PNR_MODE must be random or sequential, got %q", p.Mode)
	}
	return nil
}
