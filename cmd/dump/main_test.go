package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/f-sync/followcheck/internal/export"
	"github.com/f-sync/followcheck/internal/relationships"
)

var fixedDumpTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type outputRecorder struct {
	files map[string][]byte
}

func (recorder *outputRecorder) write(outputPath string, contents []byte) error {
	recorder.files[outputPath] = append([]byte(nil), contents...)
	return nil
}

func (recorder *outputRecorder) paths() []string {
	paths := make([]string, 0, len(recorder.files))
	for outputPath := range recorder.files {
		paths = append(paths, outputPath)
	}
	sort.Strings(paths)
	return paths
}

func userRecord(handle string, capturedAt time.Time) relationships.UserRecord {
	timestamp := capturedAt.Unix()
	return relationships.UserRecord{ProfileURL: "https://www.instagram.com/" + handle, Handle: handle, CapturedAt: &timestamp}
}

func fixtureSnapshot() relationships.Snapshot {
	return relationships.NewSnapshot(
		[]relationships.UserRecord{userRecord("a", fixedDumpTime.Add(-10*24*time.Hour)), userRecord("b", fixedDumpTime.Add(-72*time.Hour))},
		[]relationships.UserRecord{userRecord("a", fixedDumpTime), userRecord("c", fixedDumpTime), userRecord("d", fixedDumpTime)},
		[]relationships.UserRecord{userRecord("p", fixedDumpTime)},
	)
}

func newTestApplication(recorder *outputRecorder, stdout *bytes.Buffer, stderr *bytes.Buffer, overrides DumpDependencies) DumpApplication {
	dependencies := overrides
	dependencies.WriteOutputFile = recorder.write
	dependencies.Now = func() time.Time { return fixedDumpTime }
	dependencies.Stdout = stdout
	dependencies.Stderr = stderr
	if dependencies.IngestArchive == nil {
		dependencies.IngestArchive = func(string) (relationships.Snapshot, error) { return fixtureSnapshot(), nil }
	}
	return NewDumpApplicationWithDependencies(dependencies)
}

func normalizedOutput(buffer *bytes.Buffer) string {
	return strings.Join(strings.Fields(buffer.String()), " ")
}

func TestDumpApplicationWritesReportAndExports(t *testing.T) {
	recorder := &outputRecorder{files: map[string][]byte{}}
	var stdout, stderr bytes.Buffer
	application := newTestApplication(recorder, &stdout, &stderr, DumpDependencies{})

	err := application.Run(context.Background(), DumpConfiguration{
		ArchivePath:     "export.zip",
		ReportPath:      "report.html",
		ExportDirectory: "exports",
		ExportFormat:    export.FormatCSV,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	expectedPaths := []string{
		filepath.Join("exports", "instagram-followers-2024-03-01.csv"),
		filepath.Join("exports", "instagram-following-2024-03-01.csv"),
		filepath.Join("exports", "instagram-ignored-2024-03-01.csv"),
		filepath.Join("exports", "instagram-not-following-back-2024-03-01.csv"),
		filepath.Join("exports", "instagram-pending-2024-03-01.csv"),
		"report.html",
	}
	sort.Strings(expectedPaths)
	if got := recorder.paths(); strings.Join(got, ",") != strings.Join(expectedPaths, ",") {
		t.Fatalf("expected outputs %v, got %v", expectedPaths, got)
	}

	notFollowingBack := string(recorder.files[filepath.Join("exports", "instagram-not-following-back-2024-03-01.csv")])
	if !strings.HasPrefix(notFollowingBack, "Username,Timestamp\nc,2024-03-01T12:00:00.000Z\nd,") {
		t.Fatalf("unexpected not-following-back export %q", notFollowingBack)
	}
	if !strings.Contains(string(recorder.files["report.html"]), "Instagram Follower Report") {
		t.Fatalf("expected rendered report to be written")
	}

	summary := normalizedOutput(&stdout)
	expectedFragments := []string{
		"Followers: 2",
		"Following: 3",
		"Not following back: 2",
		"Pending requests: 1",
		"Follower ratio: 0.67",
		"Newest follower: @b (3 days ago)",
		"Wrote report.html",
	}
	for _, fragment := range expectedFragments {
		if !strings.Contains(summary, fragment) {
			t.Fatalf("expected summary to contain %q, got %q", fragment, summary)
		}
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected no warnings, got %q", stderr.String())
	}
}

func TestDumpApplicationSampleUsesThousandsSeparators(t *testing.T) {
	recorder := &outputRecorder{files: map[string][]byte{}}
	var stdout, stderr bytes.Buffer
	application := newTestApplication(recorder, &stdout, &stderr, DumpDependencies{
		GenerateSample: func(relationships.SampleConfig) (relationships.Snapshot, error) {
			return relationships.GenerateSample(relationships.SampleConfig{FollowerOnlyCount: 1500, MutualCount: 1})
		},
	})

	if err := application.Run(context.Background(), DumpConfiguration{UseSample: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary := normalizedOutput(&stdout); !strings.Contains(summary, "Followers: 1,501") {
		t.Fatalf("expected formatted follower count, got %q", summary)
	}
	if len(recorder.files) != 0 {
		t.Fatalf("expected no files without --report or --export-dir, got %v", recorder.paths())
	}
	if !strings.Contains(stderr.String(), "only the summary was written") {
		t.Fatalf("expected a warning about missing outputs, got %q", stderr.String())
	}
}

func TestDumpApplicationAppliesIgnoredHandles(t *testing.T) {
	recorder := &outputRecorder{files: map[string][]byte{}}
	var stdout, stderr bytes.Buffer
	application := newTestApplication(recorder, &stdout, &stderr, DumpDependencies{
		ReadInputFile: func(string) ([]byte, error) { return []byte(`["c"]`), nil },
	})

	err := application.Run(context.Background(), DumpConfiguration{
		ArchivePath:     "export.zip",
		IgnoredPath:     "ignored.json",
		ExportDirectory: "exports",
		ExportFormat:    export.FormatJSON,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var notFollowingBack []relationships.UserRecord
	payload := recorder.files[filepath.Join("exports", "instagram-not-following-back-2024-03-01.json")]
	if err := json.Unmarshal(payload, &notFollowingBack); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(notFollowingBack) != 1 || notFollowingBack[0].Handle != "d" {
		t.Fatalf("expected only d to remain, got %+v", notFollowingBack)
	}
	if summary := normalizedOutput(&stdout); !strings.Contains(summary, "Ignored: 1") {
		t.Fatalf("expected ignored count in summary, got %q", summary)
	}
}

func TestDumpApplicationErrors(t *testing.T) {
	brokenArchivePath := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(brokenArchivePath, []byte("not a zip"), 0o600); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	testCases := []struct {
		name          string
		dependencies  DumpDependencies
		configuration DumpConfiguration
		expectedError error
	}{
		{
			name:          "missing source",
			configuration: DumpConfiguration{ReportPath: "report.html"},
			expectedError: errMissingSource,
		},
		{
			name:          "corrupt archive",
			dependencies:  DumpDependencies{IngestArchive: relationships.IngestFile},
			configuration: DumpConfiguration{ArchivePath: brokenArchivePath, ReportPath: "report.html"},
			expectedError: relationships.ErrCorruptArchive,
		},
		{
			name:          "ignored list not an array",
			dependencies:  DumpDependencies{ReadInputFile: func(string) ([]byte, error) { return []byte(`{"c": true}`), nil }},
			configuration: DumpConfiguration{ArchivePath: "export.zip", IgnoredPath: "ignored.json"},
			expectedError: export.ErrNotAnArray,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			recorder := &outputRecorder{files: map[string][]byte{}}
			var stdout, stderr bytes.Buffer
			application := newTestApplication(recorder, &stdout, &stderr, testCase.dependencies)
			err := application.Run(context.Background(), testCase.configuration)
			if !errors.Is(err, testCase.expectedError) {
				t.Fatalf("expected error %v, got %v", testCase.expectedError, err)
			}
			if len(recorder.files) != 0 {
				t.Fatalf("expected no output files, got %v", recorder.paths())
			}
		})
	}
}

func TestDumpCommandFlags(t *testing.T) {
	testCases := []struct {
		name        string
		arguments   []string
		expectError bool
		expectFiles int
	}{
		{name: "archive with report", arguments: []string{"--archive", "export.zip", "--report", "out.html"}, expectFiles: 1},
		{name: "archive with exports", arguments: []string{"--archive", "export.zip", "--report", "", "--export-dir", "out", "--format", "jsonl"}, expectFiles: 5},
		{name: "archive and sample together", arguments: []string{"--archive", "export.zip", "--sample"}, expectError: true},
		{name: "unknown format", arguments: []string{"--archive", "export.zip", "--format", "xml"}, expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			recorder := &outputRecorder{files: map[string][]byte{}}
			var stdout, stderr bytes.Buffer
			command := newDumpCommand(newTestApplication(recorder, &stdout, &stderr, DumpDependencies{}))
			command.SetArgs(testCase.arguments)
			command.SetOut(&stdout)
			command.SetErr(&stderr)

			err := command.Execute()
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute returned error: %v", err)
			}
			if len(recorder.files) != testCase.expectFiles {
				t.Fatalf("expected %d files, got %v", testCase.expectFiles, recorder.paths())
			}
		})
	}
}
