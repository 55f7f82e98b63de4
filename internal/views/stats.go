package views

import (
	"sort"
	"time"

	"github.com/f-sync/followcheck/internal/relationships"
)

const (
	monthKeyLayout   = "2006-01"
	monthLabelLayout = "Jan 2006"
)

// Statistics summarizes a snapshot.
type Statistics struct {
	Followers        int           `json:"followers"`
	Following        int           `json:"following"`
	NotFollowingBack int           `json:"notFollowingBack"`
	Ignored          int           `json:"ignored"`
	Pending          int           `json:"pending"`
	FollowerRatio    float64       `json:"followerRatio"`
	Timeline         []MonthBucket `json:"timeline"`
}

// MonthBucket counts the timestamped followers and following captured in one calendar month (UTC).
type MonthBucket struct {
	Month     string `json:"month"`
	Label     string `json:"label"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
}

// Summarize computes the statistics of snapshot. NotFollowingBack counts only non-ignored entries.
func Summarize(snapshot relationships.Snapshot) Statistics {
	followingCount := len(snapshot.Following)
	ratioDenominator := followingCount
	if ratioDenominator == 0 {
		ratioDenominator = 1
	}
	return Statistics{
		Followers:        len(snapshot.Followers),
		Following:        followingCount,
		NotFollowingBack: len(partitionIgnored(snapshot, false)),
		Ignored:          len(snapshot.IgnoredHandles),
		Pending:          len(snapshot.Pending),
		FollowerRatio:    float64(len(snapshot.Followers)) / float64(ratioDenominator),
		Timeline:         timeline(snapshot),
	}
}

func timeline(snapshot relationships.Snapshot) []MonthBucket {
	buckets := map[string]*MonthBucket{}
	bucketFor := func(record relationships.UserRecord) *MonthBucket {
		capturedAt := time.Unix(record.Timestamp(), 0).UTC()
		key := capturedAt.Format(monthKeyLayout)
		bucket, exists := buckets[key]
		if !exists {
			bucket = &MonthBucket{Month: key, Label: capturedAt.Format(monthLabelLayout)}
			buckets[key] = bucket
		}
		return bucket
	}

	for _, record := range snapshot.Followers {
		if record.HasTimestamp() {
			bucketFor(record).Followers++
		}
	}
	for _, record := range snapshot.Following {
		if record.HasTimestamp() {
			bucketFor(record).Following++
		}
	}

	ordered := make([]MonthBucket, 0, len(buckets))
	for _, bucket := range buckets {
		ordered = append(ordered, *bucket)
	}
	sort.Slice(ordered, func(first, second int) bool {
		return ordered[first].Month < ordered[second].Month
	})
	return ordered
}
