package connectivity

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ResilienceConfig sets the retry and circuit-breaker defaults applied by
// Resilient. A route overrides them with the same keys in its config JSON:
//
//	{"retries": 2, "retry_backoff_ms": 50, "breaker_threshold": 3, "breaker_reset_ms": 10000}
type ResilienceConfig struct {
	Retries          int   `json:"retries"`
	RetryBackoffMs   int64 `json:"retry_backoff_ms"`
	BreakerThreshold int   `json:"breaker_threshold"` // 0 disables the breaker
	BreakerResetMs   int64 `json:"breaker_reset_ms"`
}

// DefaultResilience retries twice and opens after five transport failures.
var DefaultResilience = ResilienceConfig{
	Retries:          2,
	RetryBackoffMs:   100,
	BreakerThreshold: 5,
	BreakerResetMs:   30_000,
}

// Resilient wraps f so every handler it builds retries transport failures
// and sits behind its own circuit breaker. Coded errors pass straight
// through both.
func Resilient(f TransportFactory, defaults ResilienceConfig, logger *slog.Logger) TransportFactory {
	return func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		rc := defaults
		if len(config) > 0 {
			if err := json.Unmarshal(config, &rc); err != nil {
				return nil, nil, fmt.Errorf("connectivity: resilience config: %w", err)
			}
		}
		h, closeFn, err := f(endpoint, config)
		if err != nil {
			return nil, nil, err
		}
		if rc.BreakerThreshold > 0 {
			cb := NewCircuitBreaker(
				WithBreakerThreshold(rc.BreakerThreshold),
				WithBreakerResetTimeout(time.Duration(rc.BreakerResetMs)*time.Millisecond))
			h = WithCircuitBreaker(cb, endpoint)(h)
		}
		if rc.Retries > 0 {
			h = WithRetry(rc.Retries, time.Duration(rc.RetryBackoffMs)*time.Millisecond, logger)(h)
		}
		return h, closeFn, nil
	}
}
