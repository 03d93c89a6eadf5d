package stores

import (
	"sync"

	"github.com/pairline/pairline/storage"
)

var (
	kvPrefix = []byte{0x01}

	kvMu      sync.Mutex
	defaultKv *KvStore
)

type KvStore struct {
	sync.RWMutex
	storage storage.Storage
}

func NewKvStore(storage storage.Storage) *KvStore {
	return &KvStore{
		storage: storage,
	}
}

// SetKvStore installs the process-wide KV store. Called once by the
// daemon after opening storage.
func SetKvStore(kv *KvStore) {
	kvMu.Lock()
	defer kvMu.Unlock()
	defaultKv = kv
}

// GetKvStore returns the process-wide KV store, backed by a throwaway
// in-memory store until the daemon installs a real one.
func GetKvStore() *KvStore {
	kvMu.Lock()
	defer kvMu.Unlock()
	if defaultKv == nil {
		defaultKv = NewKvStore(storage.NewMemoryStorage())
	}
	return defaultKv
}

func (kv *KvStore) Set(key []byte, value []byte) error {
	kv.Lock()
	defer kv.Unlock()
	pKey := append(append([]byte{}, kvPrefix...), key...)
	return kv.storage.Set(pKey, value)
}

func (kv *KvStore) Get(key []byte) ([]byte, error) {
	kv.RLock()
	defer kv.RUnlock()
	pKey := append(append([]byte{}, kvPrefix...), key...)
	return kv.storage.Get(pKey)
}
