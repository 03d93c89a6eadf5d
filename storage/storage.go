package storage

// Storage is the minimal KV surface the daemon persists through: source
// read positions and similar small records keyed by fixed strings.
type Storage interface {
	Set(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Contains(key []byte) bool
	Close()
}
