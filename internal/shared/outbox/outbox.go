package outbox

// Outbox row persisted alongside state changes.
// Worker relay reads pending rows and publishes to the event bus.
type Message struct {
	ID           string
	EventType    string
	PartitionKey string
	Payload      []byte
	Status       string // pending, published, failed
	RetryCount   int
}

const (
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusFailed    = "failed"
)
