package relationships

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	errMessageNullDocument     = "document is null"
	errMessageMissingContainer = "missing key"
	errMessageEmptyStringList  = "string_list_data is empty"
	errMessageMissingHref      = "string_list_data[0] has no href"
	errMessageMissingHandle    = "entry has no handle"
	wrapperErrorFormat         = "entry %d: %w"
	containerErrorFormat       = "%w %q"
	followingContainerKey      = "relationships_following"
	pendingContainerKey        = "relationships_follow_requests_sent"
	sourceKindFollowers        = sourceKind("followers")
	sourceKindFollowing        = sourceKind("following")
	sourceKindPendingRequests  = sourceKind("pending")
)

var (
	errNullDocument     = errors.New(errMessageNullDocument)
	errMissingContainer = errors.New(errMessageMissingContainer)
	errEmptyStringList  = errors.New(errMessageEmptyStringList)
	errMissingHref      = errors.New(errMessageMissingHref)
	errMissingHandle    = errors.New(errMessageMissingHandle)
)

// sourceKind selects where a wrapper's handle is read from.
type sourceKind string

// StringListEntry is one element of a wrapper's string_list_data array.
// Every field is optional in the export; absence is checked during normalization.
type StringListEntry struct {
	Href      *string `json:"href"`
	Value     *string `json:"value"`
	Timestamp *int64  `json:"timestamp"`
}

// Wrapper is a single relationship record as it appears in the export.
type Wrapper struct {
	Title          *string           `json:"title"`
	StringListData []StringListEntry `json:"string_list_data"`
}

// FollowersList is the top-level array of followers_1.json.
type FollowersList []Wrapper

// FollowingContainer is the top-level object of following.json.
type FollowingContainer struct {
	RelationshipsFollowing *[]Wrapper `json:"relationships_following"`
}

// PendingContainer is the top-level object of pending_follow_requests.json.
type PendingContainer struct {
	RelationshipsFollowRequestsSent *[]Wrapper `json:"relationships_follow_requests_sent"`
}

// DecodeFollowers parses the followers document, which must be a JSON array.
func DecodeFollowers(data []byte) (FollowersList, error) {
	var decoded *FollowersList
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, errNullDocument
	}
	return *decoded, nil
}

// DecodeFollowing parses the following document, which must hold relationships_following.
func DecodeFollowing(data []byte) (FollowingContainer, error) {
	var decoded *FollowingContainer
	if err := json.Unmarshal(data, &decoded); err != nil {
		return FollowingContainer{}, err
	}
	if decoded == nil {
		return FollowingContainer{}, errNullDocument
	}
	if decoded.RelationshipsFollowing == nil {
		return FollowingContainer{}, fmt.Errorf(containerErrorFormat, errMissingContainer, followingContainerKey)
	}
	return *decoded, nil
}

// DecodePending parses the pending requests document, which must hold relationships_follow_requests_sent.
func DecodePending(data []byte) (PendingContainer, error) {
	var decoded *PendingContainer
	if err := json.Unmarshal(data, &decoded); err != nil {
		return PendingContainer{}, err
	}
	if decoded == nil {
		return PendingContainer{}, errNullDocument
	}
	if decoded.RelationshipsFollowRequestsSent == nil {
		return PendingContainer{}, fmt.Errorf(containerErrorFormat, errMissingContainer, pendingContainerKey)
	}
	return *decoded, nil
}

// normalizeWrappers converts wrappers into records in source order. Only the first
// string_list_data element is read; later elements are ignored.
func normalizeWrappers(wrappers []Wrapper, kind sourceKind) ([]UserRecord, error) {
	records := make([]UserRecord, 0, len(wrappers))
	for index, wrapper := range wrappers {
		record, err := normalizeWrapper(wrapper, kind)
		if err != nil {
			return nil, fmt.Errorf(wrapperErrorFormat, index, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func normalizeWrapper(wrapper Wrapper, kind sourceKind) (UserRecord, error) {
	if len(wrapper.StringListData) == 0 {
		return UserRecord{}, errEmptyStringList
	}
	entry := wrapper.StringListData[0]
	if entry.Href == nil || *entry.Href == "" {
		return UserRecord{}, errMissingHref
	}

	handle := stringValue(entry.Value)
	if kind == sourceKindFollowing {
		// following.json names the account in the outer title; the nested value is
		// usually absent and only used when the title is.
		if title := stringValue(wrapper.Title); title != "" {
			handle = title
		}
	}
	if handle == "" {
		return UserRecord{}, errMissingHandle
	}

	record := UserRecord{ProfileURL: *entry.Href, Handle: handle}
	if entry.Timestamp != nil {
		capturedAt := *entry.Timestamp
		record.CapturedAt = &capturedAt
	}
	return record, nil
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
