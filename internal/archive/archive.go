// Package archive provides read access to the entries of an in-memory ZIP container.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	errMessageCorruptArchive = "payload is not a valid zip archive"
	errMessageInvalidText    = "entry content is not valid UTF-8 text"
	errMessageEntryTooLarge  = "entry exceeds the maximum decompressed size"
	errMessageReadFile       = "read archive file"
	entryReadErrorFormat     = "%w: %s: %v"
	entryLimitErrorFormat    = "%w: %s exceeds %d bytes"
	directorySuffix          = "/"

	// MaxEntryBytes bounds the decompressed size of a single entry.
	MaxEntryBytes = 256 << 20
)

var (
	// ErrCorruptArchive reports a payload that cannot be read as a ZIP container,
	// including entries that fail to decompress.
	ErrCorruptArchive = errors.New(errMessageCorruptArchive)
	// ErrInvalidText reports entry bytes that are not valid UTF-8.
	ErrInvalidText = errors.New(errMessageInvalidText)
	// ErrEntryTooLarge reports an entry whose decompressed content exceeds MaxEntryBytes.
	ErrEntryTooLarge = errors.New(errMessageEntryTooLarge)
)

// Archive exposes the named entries of a ZIP payload.
type Archive struct {
	entries map[string]*zip.File
	names   []string
}

// EntryHandle refers to a single file entry inside an Archive.
type EntryHandle struct {
	file *zip.File
}

// Open parses the central directory of payload. It fails with ErrCorruptArchive when
// the payload is not a ZIP container.
func Open(payload []byte) (*Archive, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zipReader != nil) {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	archive := &Archive{entries: make(map[string]*zip.File, len(zipReader.File))}
	for _, file := range zipReader.File {
		if strings.HasSuffix(file.Name, directorySuffix) {
			continue
		}
		if _, alreadyPresent := archive.entries[file.Name]; alreadyPresent {
			continue
		}
		archive.entries[file.Name] = file
		archive.names = append(archive.names, file.Name)
	}
	return archive, nil
}

// OpenFile reads the ZIP file at path and opens it with Open.
func OpenFile(path string) (*Archive, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errMessageReadFile, err)
	}
	return Open(payload)
}

// Entry looks up a file entry by its exact, case-sensitive path.
func (archive *Archive) Entry(path string) (*EntryHandle, bool) {
	file, exists := archive.entries[path]
	if !exists {
		return nil, false
	}
	return &EntryHandle{file: file}, true
}

// Names lists the file entries in central directory order.
func (archive *Archive) Names() []string {
	names := make([]string, len(archive.names))
	copy(names, archive.names)
	return names
}

// Path returns the entry name inside the archive.
func (entry *EntryHandle) Path() string {
	return entry.file.Name
}

// Size returns the declared decompressed size of the entry.
func (entry *EntryHandle) Size() uint64 {
	return entry.file.UncompressedSize64
}

// ReadText decompresses the entry and returns its content as UTF-8 text.
// Decompression failures are reported as ErrCorruptArchive and invalid UTF-8 as ErrInvalidText.
// ReadText blocks until the entry is fully decompressed and is safe to call from
// several goroutines at once.
func (entry *EntryHandle) ReadText() (string, error) {
	reader, err := entry.file.Open()
	if err != nil {
		return "", fmt.Errorf(entryReadErrorFormat, ErrCorruptArchive, entry.file.Name, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(io.LimitReader(reader, MaxEntryBytes+1))
	if err != nil {
		return "", fmt.Errorf(entryReadErrorFormat, ErrCorruptArchive, entry.file.Name, err)
	}
	if len(content) > MaxEntryBytes {
		return "", fmt.Errorf(entryLimitErrorFormat, ErrEntryTooLarge, entry.file.Name, MaxEntryBytes)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: %s", ErrInvalidText, entry.file.Name)
	}
	return string(content), nil
}
