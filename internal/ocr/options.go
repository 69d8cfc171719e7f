package ocr

// Options configures recognition
type Options struct {
	// Tesseract language code(s), e.g. "eng" or "eng+jpn"
	Language string

	// Number of engines recognizing in parallel; 0 uses the CPU count
	Workers int

	// Results whose mean word confidence is below this are rejected (0..100)
	MinConfidence float64

	// Characters tesseract may emit; empty allows all
	Whitelist string
}

// DefaultOptions returns default recognition options
func DefaultOptions() Options {
	return Options{
		Language: "eng",
		Workers:  0,
	}
}

// LabelOptions tunes recognition for printed ingredient labels
func LabelOptions() Options {
	opts := DefaultOptions()
	opts.MinConfidence = 30
	return opts
}

// WithLanguage sets the recognition language
func (opts Options) WithLanguage(language string) Options {
	opts.Language = language
	return opts
}

// WithWorkers sets the number of parallel engines
func (opts Options) WithWorkers(workers int) Options {
	opts.Workers = workers
	return opts
}

// WithMinConfidence rejects results below the given mean confidence
func (opts Options) WithMinConfidence(min float64) Options {
	opts.MinConfidence = min
	return opts
}

// WithWhitelist restricts the characters tesseract may emit
func (opts Options) WithWhitelist(chars string) Options {
	opts.Whitelist = chars
	return opts
}
