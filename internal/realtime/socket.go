package realtime

// Socket is the hub's view of one live connection.
type Socket interface {
	ID() string
	// Send queues data for delivery. It must not block.
	Send(data []byte) error
	IsOpen() bool
	Close(reason string)
}
