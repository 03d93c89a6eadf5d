package storage

import (
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

type diskStorage struct {
	store    *badger.DB
	gcTicker *time.Ticker
	done     chan struct{}
	log      *zap.SugaredLogger
}

// NewDiskStorage opens a badger-backed store at path.
func NewDiskStorage(path string) (Storage, error) {
	log := zap.L().Sugar().With("service", "storage")

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithLogger(badgerLogger{log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &diskStorage{
		store:    db,
		gcTicker: time.NewTicker(5 * time.Minute),
		done:     make(chan struct{}),
		log:      log,
	}
	go s.gc()
	return s, nil
}

func (s *diskStorage) Set(key []byte, value []byte) error {
	return s.store.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *diskStorage) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.store.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *diskStorage) Contains(key []byte) bool {
	err := s.store.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	return err == nil
}

func (s *diskStorage) Close() {
	s.gcTicker.Stop()
	close(s.done)
	if err := s.store.Close(); err != nil {
		s.log.Errorw("failed to close storage", "error", err)
	}
}

func (s *diskStorage) gc() {
	for {
		select {
		case <-s.done:
			return
		case <-s.gcTicker.C:
			// one GC pass per tick; ErrNoRewrite just means nothing to do
			if err := s.store.RunValueLogGC(0.7); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debugw("value log GC", "error", err)
			}
		}
	}
}

// badgerLogger adapts badger's logger interface onto zap.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) { l.log.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warnf(format, args...)
}
func (l badgerLogger) Infof(format string, args ...interface{})  { l.log.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{}) { l.log.Debugf(format, args...) }
