package relationships_test

import (
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/f-sync/followcheck/internal/relationships"
)

func TestGenerateSampleDefaults(t *testing.T) {
	fixedNow := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	config := relationships.DefaultSampleConfig()
	config.Now = func() time.Time { return fixedNow }
	config.Random = rand.New(rand.NewPCG(1, 2))

	snapshot, err := relationships.GenerateSample(config)
	if err != nil {
		t.Fatalf("GenerateSample returned error: %v", err)
	}

	counts := []struct {
		name     string
		got      int
		expected int
	}{
		{name: "followers", got: len(snapshot.Followers), expected: 250},
		{name: "following", got: len(snapshot.Following), expected: 200},
		{name: "not following back", got: len(snapshot.NotFollowingBack), expected: 100},
		{name: "pending", got: len(snapshot.Pending), expected: 15},
		{name: "ignored", got: len(snapshot.IgnoredHandles), expected: 0},
	}
	for _, count := range counts {
		if count.got != count.expected {
			t.Fatalf("expected %d %s, got %d", count.expected, count.name, count.got)
		}
	}

	if !reflect.DeepEqual(relationships.NotFollowingBack(snapshot.Followers, snapshot.Following), snapshot.NotFollowingBack) {
		t.Fatalf("not following back does not match the derived difference")
	}
	for _, record := range snapshot.NotFollowingBack {
		if strings.HasPrefix(record.Handle, "mutual_friend_") {
			t.Fatalf("mutual handle %q listed as not following back", record.Handle)
		}
	}
	for _, record := range snapshot.Following {
		if !record.HasTimestamp() {
			t.Fatalf("expected timestamp on %q", record.Handle)
		}
		if record.Timestamp() > fixedNow.Unix() {
			t.Fatalf("timestamp of %q is in the future: %d", record.Handle, record.Timestamp())
		}
		if record.ProfileURL != "https://www.instagram.com/"+record.Handle {
			t.Fatalf("unexpected profile URL %q for %q", record.ProfileURL, record.Handle)
		}
	}
}

func TestGenerateSampleMembership(t *testing.T) {
	testCases := []struct {
		name              string
		config            relationships.SampleConfig
		expectedFollowers int
		expectedFollowing int
		expectedNotBack   int
		expectedPending   int
	}{
		{
			name:              "empty",
			config:            relationships.SampleConfig{},
			expectedFollowers: 0,
			expectedFollowing: 0,
			expectedNotBack:   0,
			expectedPending:   0,
		},
		{
			name: "mutual only",
			config: relationships.SampleConfig{
				MutualCount: 12,
			},
			expectedFollowers: 12,
			expectedFollowing: 12,
			expectedNotBack:   0,
		},
		{
			name: "custom groups",
			config: relationships.SampleConfig{
				FollowerOnlyCount:   3,
				MutualCount:         4,
				FollowingOnlyGroups: []relationships.SampleGroup{{Prefix: "artist_", Count: 5}, {Prefix: "shop_", Count: 2}},
				PendingCount:        1,
			},
			expectedFollowers: 7,
			expectedFollowing: 11,
			expectedNotBack:   7,
			expectedPending:   1,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			snapshot, err := relationships.GenerateSample(testCase.config)
			if err != nil {
				t.Fatalf("GenerateSample returned error: %v", err)
			}
			if len(snapshot.Followers) != testCase.expectedFollowers {
				t.Fatalf("expected %d followers, got %d", testCase.expectedFollowers, len(snapshot.Followers))
			}
			if len(snapshot.Following) != testCase.expectedFollowing {
				t.Fatalf("expected %d following, got %d", testCase.expectedFollowing, len(snapshot.Following))
			}
			if len(snapshot.NotFollowingBack) != testCase.expectedNotBack {
				t.Fatalf("expected %d not following back, got %d", testCase.expectedNotBack, len(snapshot.NotFollowingBack))
			}
			if len(snapshot.Pending) != testCase.expectedPending {
				t.Fatalf("expected %d pending, got %d", testCase.expectedPending, len(snapshot.Pending))
			}
			if testCase.config.FollowingOnlyCount() != len(snapshot.NotFollowingBack) {
				t.Fatalf("FollowingOnlyCount %d does not match not following back %d", testCase.config.FollowingOnlyCount(), len(snapshot.NotFollowingBack))
			}
		})
	}
}

func TestGenerateSampleRejectsInvalidConfig(t *testing.T) {
	testCases := []struct {
		name   string
		config relationships.SampleConfig
	}{
		{name: "negative mutual", config: relationships.SampleConfig{MutualCount: -1}},
		{name: "negative group", config: relationships.SampleConfig{FollowingOnlyGroups: []relationships.SampleGroup{{Prefix: "x_", Count: -2}}}},
		{name: "empty prefix", config: relationships.SampleConfig{FollowingOnlyGroups: []relationships.SampleGroup{{Count: 1}}}},
		{name: "mutual prefix reused", config: relationships.SampleConfig{FollowingOnlyGroups: []relationships.SampleGroup{{Prefix: "mutual_friend_", Count: 1}}}},
		{name: "overlapping prefixes", config: relationships.SampleConfig{FollowingOnlyGroups: []relationships.SampleGroup{{Prefix: "brand_", Count: 11}, {Prefix: "brand_1", Count: 1}}}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := relationships.GenerateSample(testCase.config); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
