// Package relationships turns an exported social-network archive into follower,
// following, not-following-back and pending relationship lists.
package relationships

import "sort"

// UserRecord describes one account in a relationship list.
type UserRecord struct {
	ProfileURL string `json:"url"`
	Handle     string `json:"username"`
	// CapturedAt holds epoch seconds and is nil when the export carried no timestamp.
	CapturedAt *int64 `json:"timestamp,omitempty"`
}

// HasTimestamp reports whether the record carries a capture time.
func (record UserRecord) HasTimestamp() bool {
	return record.CapturedAt != nil
}

// Timestamp returns the capture time in epoch seconds, or zero when absent.
func (record UserRecord) Timestamp() int64 {
	if record.CapturedAt == nil {
		return 0
	}
	return *record.CapturedAt
}

// Snapshot is the result of one ingestion. A new ingestion replaces it entirely.
type Snapshot struct {
	Followers        []UserRecord
	Following        []UserRecord
	NotFollowingBack []UserRecord
	Pending          []UserRecord
	IgnoredHandles   map[string]struct{}
}

// IsIgnored reports whether handle belongs to the ignored set.
func (snapshot Snapshot) IsIgnored(handle string) bool {
	_, ignored := snapshot.IgnoredHandles[handle]
	return ignored
}

// IgnoredList returns the ignored handles in ascending order.
func (snapshot Snapshot) IgnoredList() []string {
	handles := make([]string, 0, len(snapshot.IgnoredHandles))
	for handle := range snapshot.IgnoredHandles {
		handles = append(handles, handle)
	}
	sort.Strings(handles)
	return handles
}

// Clone returns a deep copy so callers can derive a new snapshot without touching the original.
func (snapshot Snapshot) Clone() Snapshot {
	ignoredHandles := make(map[string]struct{}, len(snapshot.IgnoredHandles))
	for handle := range snapshot.IgnoredHandles {
		ignoredHandles[handle] = struct{}{}
	}
	return Snapshot{
		Followers:        cloneRecords(snapshot.Followers),
		Following:        cloneRecords(snapshot.Following),
		NotFollowingBack: cloneRecords(snapshot.NotFollowingBack),
		Pending:          cloneRecords(snapshot.Pending),
		IgnoredHandles:   ignoredHandles,
	}
}

func cloneRecords(records []UserRecord) []UserRecord {
	cloned := make([]UserRecord, len(records))
	for index, record := range records {
		if record.CapturedAt != nil {
			capturedAt := *record.CapturedAt
			record.CapturedAt = &capturedAt
		}
		cloned[index] = record
	}
	return cloned
}
