package item

import (
	"time"

	"github.com/xraph/fairq"
)

// Options configures a new work item.
type Options struct {
	// Tier is the service class of the owning tenant.
	Tier fairq.Tier

	// BasePriority is the priority before dynamic adjustment.
	BasePriority float64

	// Cost is the estimated processing cost, ≥ 0.
	Cost float64

	// Deadline adds an urgency bonus when within 100 seconds.
	Deadline *time.Time

	// Timeout bounds a single processing attempt. Zero means no limit.
	Timeout time.Duration

	// MaxRetries is the retry budget before permanent failure.
	MaxRetries int

	// Class is classification metadata (source, kind, size, complexity).
	Class Classification
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Tier:       fairq.TierFree,
		Cost:       1,
		MaxRetries: 3,
		Class:      Classification{Complexity: ComplexityLow},
	}
}

// Option is a functional option for configuring a work item.
type Option func(*Options)

// WithTier sets the tenant's service tier.
func WithTier(t fairq.Tier) Option {
	return func(o *Options) { o.Tier = t }
}

// WithBasePriority sets the base priority. Higher is served first.
func WithBasePriority(p float64) Option {
	return func(o *Options) { o.BasePriority = p }
}

// WithCost sets the estimated processing cost.
func WithCost(c float64) Option {
	return func(o *Options) { o.Cost = c }
}

// WithDeadline sets the soft deadline used for the urgency bonus.
func WithDeadline(t time.Time) Option {
	return func(o *Options) { o.Deadline = &t }
}

// WithTimeout bounds a single processing attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithMaxRetries sets the retry budget before permanent failure.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithClass sets the classification metadata.
func WithClass(c Classification) Option {
	return func(o *Options) { o.Class = c }
}

// WithComplexity sets only the complexity level of the classification.
func WithComplexity(c Complexity) Option {
	return func(o *Options) { o.Class.Complexity = c }
}
