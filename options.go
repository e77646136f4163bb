package mdns

import "github.com/pion/logging"

// Option configures an Engine at construction time, following the
// functional-options pattern the teacher's config.go uses for
// ServerOption/ClientOption.
type Option func(*Engine)

// WithLoggerFactory sets the logging.LoggerFactory the engine pulls its
// logger from. The default is
// logging.NewDefaultLoggerFactory().
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(e *Engine) {
		if f != nil {
			e.loggerFactory = f
		}
	}
}

// WithClock overrides the Clock used for resend/timeout/re-announce
// scheduling. Tests use this to drive the engine without real sleeps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}
