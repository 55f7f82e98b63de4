package snapshotstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/f-sync/followcheck/internal/relationships"
)

const (
	currentSnapshotKey       = "snapshot/current"
	dataDirectoryPermissions = 0o750
	errMessagePathRequired   = "badger store path is required unless in-memory"
	errMessageCreateDir      = "create data directory"
	errMessageOpenDB         = "open badger database"
	errMessageDecodeSnapshot = "decode stored snapshot"
	errMessageEncodeSnapshot = "encode snapshot"
)

var errPathRequired = errors.New(errMessagePathRequired)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   *zap.Logger
}

// BadgerStore keeps the current snapshot under a single key of an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens or creates the database described by configuration.
func OpenBadger(configuration BadgerConfig) (*BadgerStore, error) {
	if !configuration.InMemory && configuration.Path == "" {
		return nil, errPathRequired
	}

	options := badger.DefaultOptions(configuration.Path)
	if configuration.InMemory {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(configuration.Path, dataDirectoryPermissions); err != nil {
		return nil, fmt.Errorf("%s: %w", errMessageCreateDir, err)
	}
	options = options.WithNumVersionsToKeep(1)
	if configuration.Logger != nil {
		options = options.WithLogger(zapBadgerLogger{logger: configuration.Logger.Sugar()})
	} else {
		options = options.WithLogger(nil)
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errMessageOpenDB, err)
	}
	return &BadgerStore{db: db}, nil
}

func (store *BadgerStore) Load(_ context.Context) (relationships.Snapshot, bool, error) {
	var encoded []byte
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(currentSnapshotKey))
		if err != nil {
			return err
		}
		encoded, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return relationships.Snapshot{}, false, nil
	}
	if err != nil {
		return relationships.Snapshot{}, false, err
	}

	var snapshot relationships.Snapshot
	if err := json.Unmarshal(encoded, &snapshot); err != nil {
		return relationships.Snapshot{}, false, fmt.Errorf("%s: %w", errMessageDecodeSnapshot, err)
	}
	return snapshot, true, nil
}

func (store *BadgerStore) Save(_ context.Context, snapshot relationships.Snapshot) error {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageEncodeSnapshot, err)
	}
	return store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(currentSnapshotKey), encoded)
	})
}

func (store *BadgerStore) Clear(_ context.Context) error {
	return store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(currentSnapshotKey))
	})
}

// Close releases the database.
func (store *BadgerStore) Close() error {
	return store.db.Close()
}

// zapBadgerLogger adapts a zap logger to badger.Logger.
type zapBadgerLogger struct {
	logger *zap.SugaredLogger
}

func (adapter zapBadgerLogger) Errorf(format string, args ...interface{}) {
	adapter.logger.Errorf(format, args...)
}

func (adapter zapBadgerLogger) Warningf(format string, args ...interface{}) {
	adapter.logger.Warnf(format, args...)
}

func (adapter zapBadgerLogger) Infof(format string, args ...interface{}) {
	adapter.logger.Infof(format, args...)
}

func (adapter zapBadgerLogger) Debugf(format string, args ...interface{}) {
	adapter.logger.Debugf(format, args...)
}
