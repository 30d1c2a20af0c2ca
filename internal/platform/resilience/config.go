package resilience

import (
	"time"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

// DefaultCircuitBreakerConfig opens after three consecutive provider
// failures and probes again after one poll interval.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxReq:   1,
	}
}

func NormalizeCircuitBreakerConfig(cfg CircuitBreakerConfig) CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.HalfOpenMaxReq < 1 {
		cfg.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return cfg
}

// LogTransitions reports breaker state changes for one dependency.
func LogTransitions(logger *logging.Logger, dependency string) StateChangeFunc {
	return func(from, to CircuitState) {
		if to == CircuitStateOpen {
			logger.Warn("circuit opened", "dependency", dependency, "from", string(from))
			return
		}
		logger.Info("circuit state changed", "dependency", dependency, "from", string(from), "to", string(to))
	}
}
