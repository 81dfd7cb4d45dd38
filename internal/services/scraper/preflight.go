package scraper

import (
	"context"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/dengnaichen/jobworkflow/internal/interfaces"
)

// PreflightConfig controls the DNS preflight retry budget.
type PreflightConfig struct {
	RetryCount   int           // attempts, 1-10
	RetrySleep   time.Duration // base sleep between attempts
	RetryBackoff float64       // multiplier applied per attempt
}

// DNSPreflight verifies a source host resolves before any fetch, retrying
// with exponential backoff. The retry budget bounds only the DNS check;
// the source's own HTTP and browser requests carry their own per-request
// timeout.
type DNSPreflight struct {
	resolver *net.Resolver
	config   PreflightConfig
	logger   arbor.ILogger
	sleep    func(ctx context.Context, d time.Duration) error
}

var _ interfaces.PreflightChecker = (*DNSPreflight)(nil)

// NewDNSPreflight creates a preflight checker with the given retry budget.
func NewDNSPreflight(config PreflightConfig, logger arbor.ILogger) *DNSPreflight {
	return &DNSPreflight{
		resolver: net.DefaultResolver,
		config:   config,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Check resolves host, sleeping retry_sleep * backoff^(attempt-1) between
// failed attempts. Terminal failure returns the last resolution error.
func (p *DNSPreflight) Check(ctx context.Context, host string) error {
	attempts := p.config.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err := p.resolver.LookupHost(ctx, host)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < attempts {
			delay := time.Duration(float64(p.config.RetrySleep) * math.Pow(p.config.RetryBackoff, float64(attempt-1)))
			p.logger.Warn().
				Str("host", host).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Str("delay", delay.String()).
				Msg("DNS preflight failed, retrying")
			if err := p.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("DNS preflight failed for %s after %d attempts: %w", host, attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
