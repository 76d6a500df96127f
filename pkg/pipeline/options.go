package pipeline

import "errors"

var (
	// ErrInvalidChunkSize is returned when the producer chunk size is
	// not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidCapacity is returned when the channel capacity is not
	// positive.
	ErrInvalidCapacity = errors.New("channel capacity must be greater than 0")

	// ErrInvalidWorkers is returned when the worker count is negative.
	ErrInvalidWorkers = errors.New("worker count must not be negative")
)

const (
	// DefaultChunkSize is the default producer read size (512 KiB).
	DefaultChunkSize = 512 * 1024

	// DefaultChannelCapacity is the default bound on buffered decoded
	// records (1,000). Together with average record size this caps the
	// pipeline's resident memory under a slow consumer.
	DefaultChannelCapacity = 1000
)

// Option configures a Pipeline.
type Option func(*config) error

type config struct {
	chunkSize int
	capacity  int
	workers   int
	metrics   *Metrics
}

func defaultConfig() config {
	return config{
		chunkSize: DefaultChunkSize,
		capacity:  DefaultChannelCapacity,
	}
}

// WithChunkSize sets how many bytes the producer requests per read.
func WithChunkSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return ErrInvalidChunkSize
		}
		c.chunkSize = n
		return nil
	}
}

// WithChannelCapacity bounds the number of decoded records buffered
// between producer and consumer.
func WithChannelCapacity(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return ErrInvalidCapacity
		}
		c.capacity = n
		return nil
	}
}

// WithWorkers sets the decode worker count. Zero selects
// pool.DefaultWorkers.
func WithWorkers(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return ErrInvalidWorkers
		}
		c.workers = n
		return nil
	}
}

// WithMetrics attaches pipeline metrics. A nil Metrics is allowed and
// records nothing.
func WithMetrics(m *Metrics) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}
