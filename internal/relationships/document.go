package relationships

import "encoding/json"

// Document is the serializable form of a Snapshot. Ignored handles are stored as a sorted list.
type Document struct {
	Followers        []UserRecord `json:"followers"`
	Following        []UserRecord `json:"following"`
	NotFollowingBack []UserRecord `json:"notFollowingBack"`
	Pending          []UserRecord `json:"pending"`
	Ignored          []string     `json:"ignored"`
}

// Document converts the snapshot into its serializable form.
func (snapshot Snapshot) Document() Document {
	cloned := snapshot.Clone()
	return Document{
		Followers:        cloned.Followers,
		Following:        cloned.Following,
		NotFollowingBack: cloned.NotFollowingBack,
		Pending:          cloned.Pending,
		Ignored:          snapshot.IgnoredList(),
	}
}

// Snapshot reconstitutes a snapshot. Stored lists are restored as-is, including trims
// applied to the not-following-back and pending lists after derivation.
func (document Document) Snapshot() Snapshot {
	ignoredHandles := make(map[string]struct{}, len(document.Ignored))
	for _, handle := range document.Ignored {
		ignoredHandles[handle] = struct{}{}
	}
	snapshot := Snapshot{
		Followers:        document.Followers,
		Following:        document.Following,
		NotFollowingBack: document.NotFollowingBack,
		Pending:          document.Pending,
		IgnoredHandles:   ignoredHandles,
	}.Clone()
	return snapshot
}

// MarshalJSON encodes the snapshot through its Document form.
func (snapshot Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot.Document())
}

// UnmarshalJSON decodes a Document and reconstitutes the snapshot from it.
func (snapshot *Snapshot) UnmarshalJSON(data []byte) error {
	var document Document
	if err := json.Unmarshal(data, &document); err != nil {
		return err
	}
	*snapshot = document.Snapshot()
	return nil
}
