package engine

import "log/slog"

// Option configures a Run.
type Option func(*Run)

// WithLogger sets the run logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Run) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets the dispatch observer. Default: NopObserver.
func WithObserver(o Observer) Option {
	return func(r *Run) {
		if o != nil {
			r.observer = o
		}
	}
}
