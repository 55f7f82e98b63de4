// Package session holds the current relationship snapshot on behalf of a caller and
// persists every replacement through an injected Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/f-sync/followcheck/internal/relationships"
)

const (
	errMessageNoSnapshot          = "no relationship data loaded"
	errMessageIngestionInProgress = "another ingestion is already in progress"
	errMessageLoadSnapshot        = "load stored snapshot"
	errMessageSaveSnapshot        = "save snapshot"
	errMessageClearSnapshot       = "clear stored snapshot"
	logMessageRestoredSnapshot    = "restored stored snapshot"
	logMessageReplacedSnapshot    = "snapshot replaced"
	logMessageUpdatedSnapshot     = "snapshot updated"
	logMessageClearedSnapshot     = "snapshot cleared"
	logFieldFollowers             = "followers"
	logFieldFollowing             = "following"
	logFieldNotFollowingBack      = "not_following_back"
	logFieldPending               = "pending"
	logFieldIgnored               = "ignored"
)

var (
	// ErrNoSnapshot is returned by updates when nothing has been loaded yet.
	ErrNoSnapshot = errors.New(errMessageNoSnapshot)
	// ErrIngestionInProgress is returned by BeginIngestion while another ingestion holds the slot.
	ErrIngestionInProgress = errors.New(errMessageIngestionInProgress)
)

// Store persists the snapshot across restarts.
type Store interface {
	Load(ctx context.Context) (relationships.Snapshot, bool, error)
	Save(ctx context.Context, snapshot relationships.Snapshot) error
	Clear(ctx context.Context) error
}

// Config configures a Manager.
type Config struct {
	Store  Store
	Logger *zap.Logger
}

// Manager owns the current snapshot. Every change produces a new snapshot that is saved
// before it becomes visible; a failed save leaves the previous snapshot in place.
type Manager struct {
	mutex     sync.RWMutex
	store     Store
	logger    *zap.Logger
	current   *relationships.Snapshot
	ingesting chan struct{}
}

// NewManager restores the stored snapshot, if any.
func NewManager(ctx context.Context, configuration Config) (*Manager, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := configuration.Store
	if store == nil {
		store = nopStore{}
	}

	manager := &Manager{store: store, logger: logger, ingesting: make(chan struct{}, 1)}
	stored, found, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errMessageLoadSnapshot, err)
	}
	if found {
		manager.current = &stored
		logger.Info(logMessageRestoredSnapshot, snapshotFields(stored)...)
	}
	return manager, nil
}

// Current returns a copy of the current snapshot.
func (manager *Manager) Current() (relationships.Snapshot, bool) {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	if manager.current == nil {
		return relationships.Snapshot{}, false
	}
	return manager.current.Clone(), true
}

// BeginIngestion reserves the single ingestion slot. The returned release function must be called
// once the ingestion finishes, whether it succeeded or not.
func (manager *Manager) BeginIngestion() (func(), error) {
	select {
	case manager.ingesting <- struct{}{}:
	default:
		return nil, ErrIngestionInProgress
	}
	var releaseOnce sync.Once
	return func() {
		releaseOnce.Do(func() { <-manager.ingesting })
	}, nil
}

// Replace persists snapshot and makes it current, discarding the previous one entirely.
func (manager *Manager) Replace(ctx context.Context, snapshot relationships.Snapshot) error {
	replacement := snapshot.Clone()

	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if err := manager.store.Save(ctx, replacement); err != nil {
		return fmt.Errorf("%s: %w", errMessageSaveSnapshot, err)
	}
	manager.current = &replacement
	manager.logger.Info(logMessageReplacedSnapshot, snapshotFields(replacement)...)
	return nil
}

// Update applies mutate to the current snapshot and persists the result.
func (manager *Manager) Update(ctx context.Context, mutate func(relationships.Snapshot) (relationships.Snapshot, error)) (relationships.Snapshot, error) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if manager.current == nil {
		return relationships.Snapshot{}, ErrNoSnapshot
	}

	updated, err := mutate(manager.current.Clone())
	if err != nil {
		return relationships.Snapshot{}, err
	}
	if err := manager.store.Save(ctx, updated); err != nil {
		return relationships.Snapshot{}, fmt.Errorf("%s: %w", errMessageSaveSnapshot, err)
	}
	manager.current = &updated
	manager.logger.Debug(logMessageUpdatedSnapshot, snapshotFields(updated)...)
	return updated.Clone(), nil
}

// Clear drops the current snapshot and its stored copy.
func (manager *Manager) Clear(ctx context.Context) error {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if err := manager.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", errMessageClearSnapshot, err)
	}
	manager.current = nil
	manager.logger.Info(logMessageClearedSnapshot)
	return nil
}

func snapshotFields(snapshot relationships.Snapshot) []zap.Field {
	return []zap.Field{
		zap.Int(logFieldFollowers, len(snapshot.Followers)),
		zap.Int(logFieldFollowing, len(snapshot.Following)),
		zap.Int(logFieldNotFollowingBack, len(snapshot.NotFollowingBack)),
		zap.Int(logFieldPending, len(snapshot.Pending)),
		zap.Int(logFieldIgnored, len(snapshot.IgnoredHandles)),
	}
}

type nopStore struct{}

func (nopStore) Load(context.Context) (relationships.Snapshot, bool, error) {
	return relationships.Snapshot{}, false, nil
}

func (nopStore) Save(context.Context, relationships.Snapshot) error { return nil }

func (nopStore) Clear(context.Context) error { return nil }
