package relationships

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	sampleProfileBaseURL          = "https://www.instagram.com/"
	sampleFollowerOnlyPrefix      = "follower_user_"
	sampleMutualPrefix            = "mutual_friend_"
	samplePendingPrefix           = "pending_user_"
	sampleTimestampSpreadSeconds  = 10_000_000
	defaultSampleFollowerOnly     = 150
	defaultSampleMutual           = 100
	defaultSamplePending          = 15
	errMessageNegativeSampleCount = "sample counts must not be negative"
	errMessageDuplicatePrefix     = "sample handle prefix overlaps another group"
	errMessageEmptyPrefix         = "sample handle prefix must not be empty"
	prefixErrorFormat             = "%w: %q"
)

var (
	errNegativeSampleCount = errors.New(errMessageNegativeSampleCount)
	errDuplicatePrefix     = errors.New(errMessageDuplicatePrefix)
	errEmptyPrefix         = errors.New(errMessageEmptyPrefix)
)

// SampleGroup is a run of generated handles sharing a prefix.
type SampleGroup struct {
	Prefix string
	Count  int
}

// SampleConfig controls the membership of a generated snapshot. Timestamps are random.
type SampleConfig struct {
	// FollowerOnlyCount accounts follow the owner without being followed back.
	FollowerOnlyCount int
	// MutualCount accounts appear in both followers and following.
	MutualCount int
	// FollowingOnlyGroups are followed by the owner and never follow back.
	FollowingOnlyGroups []SampleGroup
	PendingCount        int
	Now                 func() time.Time
	Random              *rand.Rand
}

// DefaultSampleConfig mirrors the demo dataset: 250 followers, 200 following, 15 pending.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		FollowerOnlyCount: defaultSampleFollowerOnly,
		MutualCount:       defaultSampleMutual,
		FollowingOnlyGroups: []SampleGroup{
			{Prefix: "celebrity_", Count: 60},
			{Prefix: "brand_", Count: 30},
			{Prefix: "influencer_", Count: 10},
		},
		PendingCount: defaultSamplePending,
	}
}

// FollowingOnlyCount sums the sizes of the following-only groups.
func (config SampleConfig) FollowingOnlyCount() int {
	total := 0
	for _, group := range config.FollowingOnlyGroups {
		total += group.Count
	}
	return total
}

// GenerateSample builds a snapshot whose mutual handles are absent from the not-following-back
// list and whose following-only handles all appear in it.
func GenerateSample(config SampleConfig) (Snapshot, error) {
	if err := config.validate(); err != nil {
		return Snapshot{}, err
	}
	generator := sampleGenerator{now: time.Now, random: config.Random}
	if config.Now != nil {
		generator.now = config.Now
	}

	followers := generator.users(sampleFollowerOnlyPrefix, config.FollowerOnlyCount)
	following := generator.users(sampleMutualPrefix, config.MutualCount)
	for _, group := range config.FollowingOnlyGroups {
		following = append(following, generator.users(group.Prefix, group.Count)...)
	}
	followers = append(followers, generator.users(sampleMutualPrefix, config.MutualCount)...)
	pending := generator.users(samplePendingPrefix, config.PendingCount)

	return NewSnapshot(followers, following, pending), nil
}

func (config SampleConfig) validate() error {
	if config.FollowerOnlyCount < 0 || config.MutualCount < 0 || config.PendingCount < 0 {
		return errNegativeSampleCount
	}
	usedPrefixes := []string{sampleFollowerOnlyPrefix, sampleMutualPrefix, samplePendingPrefix}
	for _, group := range config.FollowingOnlyGroups {
		if group.Count < 0 {
			return errNegativeSampleCount
		}
		if group.Prefix == "" {
			return errEmptyPrefix
		}
		// "brand_" and "brand_1" would both produce "brand_11".
		for _, usedPrefix := range usedPrefixes {
			if strings.HasPrefix(group.Prefix, usedPrefix) || strings.HasPrefix(usedPrefix, group.Prefix) {
				return fmt.Errorf(prefixErrorFormat, errDuplicatePrefix, group.Prefix)
			}
		}
		usedPrefixes = append(usedPrefixes, group.Prefix)
	}
	return nil
}

type sampleGenerator struct {
	now    func() time.Time
	random *rand.Rand
}

func (generator sampleGenerator) users(prefix string, count int) []UserRecord {
	records := make([]UserRecord, 0, count)
	nowSeconds := generator.now().Unix()
	for index := 1; index <= count; index++ {
		handle := prefix + strconv.Itoa(index)
		capturedAt := nowSeconds - generator.offsetSeconds()
		records = append(records, UserRecord{
			ProfileURL: sampleProfileBaseURL + handle,
			Handle:     handle,
			CapturedAt: &capturedAt,
		})
	}
	return records
}

func (generator sampleGenerator) offsetSeconds() int64 {
	if generator.random != nil {
		return generator.random.Int64N(sampleTimestampSpreadSeconds)
	}
	return rand.Int64N(sampleTimestampSpreadSeconds)
}
