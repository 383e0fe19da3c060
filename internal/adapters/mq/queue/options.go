package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*config)

// WithCapacity sets the maximum number of queued messages.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}
