package publisher

// Publisher represents a service for publishing saved posts
type Publisher interface {
	// Publish publishes a message to the stream for the given source type
	Publish(sourceType string, message []byte) error

	// Close closes the publisher connection
	Close() error
}
