// Package views derives the browsable lists of a snapshot: tabs, search, sort and statistics.
package views

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/f-sync/followcheck/internal/relationships"
)

// ListName identifies one browsable list of a snapshot.
type ListName string

// SortMode orders a list.
type SortMode string

const (
	ListFollowers        ListName = "followers"
	ListFollowing        ListName = "following"
	ListNotFollowingBack ListName = "not-following-back"
	ListIgnored          ListName = "ignored"
	ListPending          ListName = "pending"

	SortHandleAscending  SortMode = "handle-asc"
	SortHandleDescending SortMode = "handle-desc"
	SortNewest           SortMode = "newest"
	SortOldest           SortMode = "oldest"

	errMessageUnknownList = "unknown list"
	errMessageUnknownSort = "unknown sort mode"
	unknownValueFormat    = "%w: %q"
)

var (
	// ErrUnknownList is returned for list names outside the supported set.
	ErrUnknownList = errors.New(errMessageUnknownList)
	// ErrUnknownSort is returned for sort modes outside the supported set.
	ErrUnknownSort = errors.New(errMessageUnknownSort)

	listNames = []ListName{ListFollowers, ListFollowing, ListNotFollowingBack, ListIgnored, ListPending}
	sortModes = []SortMode{SortHandleAscending, SortHandleDescending, SortNewest, SortOldest}
)

// Query narrows and orders a list.
type Query struct {
	Search string
	Sort   SortMode
}

// ListNames returns every supported list in display order.
func ListNames() []ListName {
	return slices.Clone(listNames)
}

// ParseListName validates a list name.
func ParseListName(value string) (ListName, error) {
	for _, name := range listNames {
		if string(name) == value {
			return name, nil
		}
	}
	return "", fmt.Errorf(unknownValueFormat, ErrUnknownList, value)
}

// ParseSortMode validates a sort mode. An empty value selects SortHandleAscending.
func ParseSortMode(value string) (SortMode, error) {
	if value == "" {
		return SortHandleAscending, nil
	}
	for _, mode := range sortModes {
		if string(mode) == value {
			return mode, nil
		}
	}
	return "", fmt.Errorf(unknownValueFormat, ErrUnknownSort, value)
}

// List returns the records of the named list. The not-following-back list excludes ignored
// handles; the ignored list holds the not-following-back records whose handle is ignored.
func List(snapshot relationships.Snapshot, name ListName) ([]relationships.UserRecord, error) {
	switch name {
	case ListFollowers:
		return snapshot.Followers, nil
	case ListFollowing:
		return snapshot.Following, nil
	case ListNotFollowingBack:
		return partitionIgnored(snapshot, false), nil
	case ListIgnored:
		return partitionIgnored(snapshot, true), nil
	case ListPending:
		return snapshot.Pending, nil
	default:
		return nil, fmt.Errorf(unknownValueFormat, ErrUnknownList, name)
	}
}

func partitionIgnored(snapshot relationships.Snapshot, ignored bool) []relationships.UserRecord {
	partition := make([]relationships.UserRecord, 0, len(snapshot.NotFollowingBack))
	for _, record := range snapshot.NotFollowingBack {
		if snapshot.IsIgnored(record.Handle) == ignored {
			partition = append(partition, record)
		}
	}
	return partition
}

// Apply filters records by a case-insensitive handle substring and sorts the result.
// The input slice is not modified.
func Apply(records []relationships.UserRecord, query Query) []relationships.UserRecord {
	needle := strings.ToLower(strings.TrimSpace(query.Search))
	filtered := make([]relationships.UserRecord, 0, len(records))
	for _, record := range records {
		if needle == "" || strings.Contains(strings.ToLower(record.Handle), needle) {
			filtered = append(filtered, record)
		}
	}

	switch query.Sort {
	case SortHandleDescending:
		collator := collate.New(language.English)
		slices.SortStableFunc(filtered, func(first, second relationships.UserRecord) int {
			return collator.CompareString(second.Handle, first.Handle)
		})
	case SortNewest:
		slices.SortStableFunc(filtered, func(first, second relationships.UserRecord) int {
			return compareInt64(second.Timestamp(), first.Timestamp())
		})
	case SortOldest:
		slices.SortStableFunc(filtered, func(first, second relationships.UserRecord) int {
			return compareInt64(first.Timestamp(), second.Timestamp())
		})
	default:
		collator := collate.New(language.English)
		slices.SortStableFunc(filtered, func(first, second relationships.UserRecord) int {
			return collator.CompareString(first.Handle, second.Handle)
		})
	}
	return filtered
}

func compareInt64(first, second int64) int {
	switch {
	case first < second:
		return -1
	case first > second:
		return 1
	default:
		return 0
	}
}
