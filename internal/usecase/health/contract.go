package health

import "context"

// StorePinger checks remote search store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexReporter reports the loaded local index size.
type IndexReporter interface {
	Size() int
}
