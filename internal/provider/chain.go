package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrExhausted = errors.New("all providers exhausted")

// Result is a successful completion and who produced it.
type Result struct {
	Text     string
	Provider string
	Cached   bool
}

// Chain tries providers in declared order and returns the first non-empty
// completion. Each call gets its own timeout; there is no overall deadline.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	cache     Cache
	log       *logrus.Logger
}

type ChainOption func(*Chain)

func WithTimeout(d time.Duration) ChainOption {
	return func(c *Chain) { c.timeout = d }
}

func WithCache(cache Cache) ChainOption {
	return func(c *Chain) { c.cache = cache }
}

func WithLogger(log *logrus.Logger) ChainOption {
	return func(c *Chain) { c.log = log }
}

func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		timeout:   10 * time.Second,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers lists the chain entries in attempt order.
func (c *Chain) Providers() []Config {
	out := make([]Config, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Config()
	}
	return out
}

// Generate returns the first usable completion, or an error wrapping
// ErrExhausted when every provider was skipped or failed.
func (c *Chain) Generate(ctx context.Context, p Prompt) (Result, error) {
	key := ""
	if c.cache != nil {
		key = cacheKey(c.providers, p)
		text, err := c.cache.Get(ctx, key)
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			recordChain("cache_hit")
			return Result{Text: text, Provider: "cache", Cached: true}, nil
		case err != nil && !errors.Is(err, ErrKeyNotFound):
			c.log.WithError(err).Warn("provider: cache read failed")
		}
	}

	var errs []error
	for _, pr := range c.providers {
		cfg := pr.Config()
		if err := cfg.Ready(); err != nil {
			c.log.WithFields(logrus.Fields{"provider": cfg.Name, "reason": err}).Debug("provider: skipped")
			recordAttempt(cfg.Name, outcomeSkipped, 0)
			continue
		}

		start := time.Now()
		text, err := c.attempt(ctx, pr, p)
		elapsed := time.Since(start)
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"provider": cfg.Name,
				"model":    cfg.Model,
				"elapsed":  elapsed.String(),
			}).WithError(err).Warn("provider: attempt failed")
			recordAttempt(cfg.Name, outcomeFailure, elapsed)
			errs = append(errs, fmt.Errorf("%s: %w", cfg.Name, err))
			continue
		}

		recordAttempt(cfg.Name, outcomeSuccess, elapsed)
		recordChain("success")
		if c.cache != nil {
			if err := c.cache.Set(ctx, key, text); err != nil {
				c.log.WithError(err).Warn("provider: cache write failed")
			}
		}
		return Result{Text: text, Provider: cfg.Name}, nil
	}

	recordChain("exhausted")
	if len(errs) == 0 {
		return Result{}, ErrExhausted
	}
	return Result{}, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}

// attempt isolates one provider call: its own deadline, and a panic in an
// adapter becomes an error.
func (c *Chain) attempt(ctx context.Context, pr Provider, p Prompt) (text string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()

	text, err = pr.Complete(ctx, p)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
