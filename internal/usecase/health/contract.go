package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker reports whether a fitted model is being served.
type ModelChecker interface {
	IsFitted() bool
}
