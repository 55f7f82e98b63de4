package archive_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/f-sync/followcheck/internal/archive"
)

type testEntry struct {
	name    string
	content []byte
	stored  bool
}

func buildPayload(t *testing.T, entries ...testEntry) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, entry := range entries {
		method := zip.Deflate
		if entry.stored {
			method = zip.Store
		}
		entryWriter, err := writer.CreateHeader(&zip.FileHeader{Name: entry.name, Method: method})
		if err != nil {
			t.Fatalf("create archive entry: %v", err)
		}
		if _, err := entryWriter.Write(entry.content); err != nil {
			t.Fatalf("write archive entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close archive writer: %v", err)
	}
	return buffer.Bytes()
}

func TestOpenRejectsNonZipPayloads(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
	}{
		{name: "empty payload", payload: nil},
		{name: "random bytes", payload: []byte{0x13, 0x37, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}},
		{name: "json text", payload: []byte(`{"relationships_following":[]}`)},
		{name: "truncated central directory", payload: buildPayload(t, testEntry{name: "a.txt", content: []byte("text")})[:20]},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			_, err := archive.Open(testCase.payload)
			if !errors.Is(err, archive.ErrCorruptArchive) {
				t.Fatalf("expected ErrCorruptArchive, got %v", err)
			}
		})
	}
}

func TestEntryLookup(t *testing.T) {
	payload := buildPayload(t,
		testEntry{name: "connections/", content: nil, stored: true},
		testEntry{name: "connections/followers_1.json", content: []byte(`[]`)},
	)
	opened, err := archive.Open(payload)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	testCases := []struct {
		name        string
		path        string
		expectFound bool
	}{
		{name: "exact path", path: "connections/followers_1.json", expectFound: true},
		{name: "case differs", path: "Connections/followers_1.json", expectFound: false},
		{name: "directory entry", path: "connections/", expectFound: false},
		{name: "missing", path: "connections/following.json", expectFound: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			entry, found := opened.Entry(testCase.path)
			if found != testCase.expectFound {
				t.Fatalf("Entry(%q) found = %v, want %v", testCase.path, found, testCase.expectFound)
			}
			if found && entry.Path() != testCase.path {
				t.Fatalf("unexpected entry path %q", entry.Path())
			}
		})
	}

	if names := opened.Names(); len(names) != 1 || names[0] != "connections/followers_1.json" {
		t.Fatalf("unexpected entry names: %v", names)
	}
}

func TestReadText(t *testing.T) {
	helloPayload := buildPayload(t, testEntry{name: "a.txt", content: []byte("hello"), stored: true})
	corruptedPayload := bytes.Replace(helloPayload, []byte("hello"), []byte("jello"), 1)
	if bytes.Equal(helloPayload, corruptedPayload) {
		t.Fatalf("expected the stored entry content to appear verbatim in the payload")
	}

	testCases := []struct {
		name          string
		payload       []byte
		expectedText  string
		expectedError error
	}{
		{
			name:         "deflated text",
			payload:      buildPayload(t, testEntry{name: "a.txt", content: []byte(`{"key":"välue"}`)}),
			expectedText: `{"key":"välue"}`,
		},
		{
			name:         "stored text",
			payload:      helloPayload,
			expectedText: "hello",
		},
		{
			name:          "invalid utf-8",
			payload:       buildPayload(t, testEntry{name: "a.txt", content: []byte{0xff, 0xfe, 0xfd}}),
			expectedError: archive.ErrInvalidText,
		},
		{
			name:          "checksum mismatch",
			payload:       corruptedPayload,
			expectedError: archive.ErrCorruptArchive,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			opened, err := archive.Open(testCase.payload)
			if err != nil {
				t.Fatalf("Open returned error: %v", err)
			}
			entry, found := opened.Entry("a.txt")
			if !found {
				t.Fatalf("expected entry to be present")
			}
			text, err := entry.ReadText()
			if testCase.expectedError != nil {
				if !errors.Is(err, testCase.expectedError) {
					t.Fatalf("expected %v, got %v", testCase.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadText returned error: %v", err)
			}
			if text != testCase.expectedText {
				t.Fatalf("ReadText = %q, want %q", text, testCase.expectedText)
			}
			again, err := entry.ReadText()
			if err != nil || again != text {
				t.Fatalf("second ReadText = %q, %v", again, err)
			}
		})
	}
}

func TestOpenFile(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "export.zip")
	if err := os.WriteFile(archivePath, buildPayload(t, testEntry{name: "a.txt", content: []byte("x")}), 0o600); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	opened, err := archive.OpenFile(archivePath)
	if err != nil {
		t.Fatalf("OpenFile returned error: %v", err)
	}
	if _, found := opened.Entry("a.txt"); !found {
		t.Fatalf("expected entry to be present")
	}

	if _, err := archive.OpenFile(filepath.Join(t.TempDir(), "missing.zip")); err == nil || errors.Is(err, archive.ErrCorruptArchive) {
		t.Fatalf("expected a file read error, got %v", err)
	}
}
