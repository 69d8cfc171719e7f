package capture

import "time"

const (
	// DefaultCaptureQuality is the JPEG quality requested from the camera
	DefaultCaptureQuality = 0.6
	// DefaultMaxTokens bounds the AI report response
	DefaultMaxTokens = 2048
	// DefaultMinDisplay is the shortest time the result overlay stays busy
	DefaultMinDisplay = 3 * time.Second
)

// Options configures an Orchestrator
type Options struct {
	Quality    float64
	MaxTokens  int
	MinDisplay time.Duration

	// After returns a channel that fires once d has elapsed
	After func(d time.Duration) <-chan time.Time
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		Quality:    DefaultCaptureQuality,
		MaxTokens:  DefaultMaxTokens,
		MinDisplay: DefaultMinDisplay,
		After:      time.After,
	}
}

// WithQuality sets the capture quality
func (opts Options) WithQuality(quality float64) Options {
	opts.Quality = quality
	return opts
}

// WithMaxTokens sets the report token budget
func (opts Options) WithMaxTokens(maxTokens int) Options {
	opts.MaxTokens = maxTokens
	return opts
}

// WithMinDisplay sets the minimum busy time of report generation
func (opts Options) WithMinDisplay(d time.Duration) Options {
	opts.MinDisplay = d
	return opts
}

// WithTimer replaces the timer used for the minimum display wait
func (opts Options) WithTimer(after func(time.Duration) <-chan time.Time) Options {
	opts.After = after
	return opts
}

func (opts Options) normalized() Options {
	def := DefaultOptions()
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = def.Quality
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	if opts.MinDisplay < 0 {
		opts.MinDisplay = 0
	}
	if opts.After == nil {
		opts.After = def.After
	}
	return opts
}
