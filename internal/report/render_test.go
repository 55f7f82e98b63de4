package report_test

import (
	"strings"
	"testing"
	"time"

	"github.com/f-sync/followcheck/internal/relationships"
	"github.com/f-sync/followcheck/internal/report"
)

func TestRender(t *testing.T) {
	capturedAt := time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC).Unix()
	snapshot := relationships.NewSnapshot(
		[]relationships.UserRecord{{ProfileURL: "https://www.instagram.com/mutual", Handle: "mutual", CapturedAt: &capturedAt}},
		[]relationships.UserRecord{
			{ProfileURL: "https://www.instagram.com/mutual", Handle: "mutual"},
			{ProfileURL: "https://www.instagram.com/star", Handle: "star", CapturedAt: &capturedAt},
			{ProfileURL: "javascript:alert(1)", Handle: "<script>"},
		},
		nil,
	)
	snapshot.IgnoredHandles["star"] = struct{}{}

	pageHTML, err := report.Render(snapshot, time.Date(2024, time.March, 1, 8, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	testCases := []struct {
		name     string
		fragment string
		present  bool
	}{
		{name: "title", fragment: "<title>Instagram Follower Report</title>", present: true},
		{name: "generated time", fragment: "Generated 2024-03-01 08:30 UTC", present: true},
		{name: "profile link", fragment: `<a href="https://www.instagram.com/star" rel="noopener noreferrer">@star</a>`, present: true},
		{name: "iso timestamp", fragment: "2024-02-03T00:00:00.000Z", present: true},
		{name: "timeline label", fragment: "Feb 2024", present: true},
		{name: "list anchors", fragment: `id="not-following-back"`, present: true},
		{name: "escaped handle", fragment: "@&lt;script&gt;", present: true},
		{name: "unsafe link dropped", fragment: "javascript:alert", present: false},
		{name: "raw script tag", fragment: "<script>", present: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			if strings.Contains(pageHTML, testCase.fragment) != testCase.present {
				t.Fatalf("fragment %q presence = %v, want %v", testCase.fragment, !testCase.present, testCase.present)
			}
		})
	}
}
