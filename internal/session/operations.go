package session

import (
	"errors"

	"github.com/f-sync/followcheck/internal/relationships"
)

const errMessageEmptyHandle = "handle cannot be empty"

// ErrEmptyHandle is returned when an ignored handle is empty.
var ErrEmptyHandle = errors.New(errMessageEmptyHandle)

// The functions below never modify their input; each returns a new snapshot.

// AddIgnored adds handle to the ignored set.
func AddIgnored(snapshot relationships.Snapshot, handle string) (relationships.Snapshot, error) {
	if handle == "" {
		return relationships.Snapshot{}, ErrEmptyHandle
	}
	updated := snapshot.Clone()
	updated.IgnoredHandles[handle] = struct{}{}
	return updated, nil
}

// RemoveIgnored drops handle from the ignored set.
func RemoveIgnored(snapshot relationships.Snapshot, handle string) relationships.Snapshot {
	updated := snapshot.Clone()
	delete(updated.IgnoredHandles, handle)
	return updated
}

// ImportIgnored merges handles into the ignored set. Empty strings are skipped.
func ImportIgnored(snapshot relationships.Snapshot, handles []string) relationships.Snapshot {
	updated := snapshot.Clone()
	for _, handle := range handles {
		if handle == "" {
			continue
		}
		updated.IgnoredHandles[handle] = struct{}{}
	}
	return updated
}

// ClearIgnored empties the ignored set.
func ClearIgnored(snapshot relationships.Snapshot) relationships.Snapshot {
	updated := snapshot.Clone()
	updated.IgnoredHandles = map[string]struct{}{}
	return updated
}

// RemoveNotFollowingBack trims handle from the not-following-back list and from the ignored set.
func RemoveNotFollowingBack(snapshot relationships.Snapshot, handle string) relationships.Snapshot {
	updated := snapshot.Clone()
	updated.NotFollowingBack = withoutHandle(updated.NotFollowingBack, handle)
	delete(updated.IgnoredHandles, handle)
	return updated
}

// RemovePending trims handle from the pending list.
func RemovePending(snapshot relationships.Snapshot, handle string) relationships.Snapshot {
	updated := snapshot.Clone()
	updated.Pending = withoutHandle(updated.Pending, handle)
	return updated
}

func withoutHandle(records []relationships.UserRecord, handle string) []relationships.UserRecord {
	kept := make([]relationships.UserRecord, 0, len(records))
	for _, record := range records {
		if record.Handle != handle {
			kept = append(kept, record)
		}
	}
	return kept
}
