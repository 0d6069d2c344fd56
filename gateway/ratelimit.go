package gateway

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
)

// RateLimiter is a token bucket shared by both facades. A nil *RateLimiter
// admits everything.
type RateLimiter struct {
	limiter  *rate.Limiter
	rejected *prometheus.CounterVec
}

// NewRateLimiter returns nil when rate limiting is disabled. Rejections are
// counted per facade when registrar is set.
func NewRateLimiter(cfg RateLimitConfig, registrar metric.MetricsRegistrar) (*RateLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "RateLimiter", "NewRateLimiter",
			"requests_per_second must be positive")
	}

	burst := cfg.Burst
	if burst == 0 {
		burst = int(math.Ceil(cfg.RequestsPerSecond))
	}

	l := &RateLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)}

	if registrar != nil {
		l.rejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "library",
				Subsystem: "gateway",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the gateway rate limiter",
			},
			[]string{"facade"},
		)
		if err := registrar.RegisterCounterVec("gateway", "rate_limited_total", l.rejected); err != nil {
			return nil, errors.Wrap(err, "RateLimiter", "NewRateLimiter", "register metrics")
		}
	}
	return l, nil
}

// Allow reports whether a request on facade may proceed.
func (l *RateLimiter) Allow(facade string) bool {
	if l == nil {
		return true
	}
	if l.limiter.Allow() {
		return true
	}
	if l.rejected != nil {
		l.rejected.WithLabelValues(facade).Inc()
	}
	return false
}
