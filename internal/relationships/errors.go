package relationships

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an ingestion failed.
type ErrorKind string

const (
	KindCorruptArchive       ErrorKind = "CorruptArchive"
	KindMissingRequiredEntry ErrorKind = "MissingRequiredEntry"
	KindMalformedJSON        ErrorKind = "MalformedJSON"
	KindDecodeError          ErrorKind = "DecodeError"

	errMessageCorruptArchive       = "the uploaded file is not a readable zip archive"
	errMessageMissingRequiredEntry = "the archive is missing expected content; re-export your data with followers and following in JSON format"
	errMessageMalformedJSON        = "the archive contains malformed JSON"
	errMessageDecodeError          = "the archive contains an entry that is not valid text"
	ingestErrorPathFormat          = "%s (%s): %v"
	ingestErrorFormat              = "%s: %v"
	errMessageEntryNotFound        = "entry not found"
)

var (
	ErrCorruptArchive       = errors.New(errMessageCorruptArchive)
	ErrMissingRequiredEntry = errors.New(errMessageMissingRequiredEntry)
	ErrMalformedJSON        = errors.New(errMessageMalformedJSON)
	ErrDecodeError          = errors.New(errMessageDecodeError)

	errEntryNotFound = errors.New(errMessageEntryNotFound)
)

// IngestError is returned for every failed ingestion. It matches the kind sentinels with errors.Is.
type IngestError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (ingestError *IngestError) Error() string {
	message := kindSentinel(ingestError.Kind).Error()
	if ingestError.Path != "" {
		return fmt.Sprintf(ingestErrorPathFormat, message, ingestError.Path, ingestError.Err)
	}
	return fmt.Sprintf(ingestErrorFormat, message, ingestError.Err)
}

func (ingestError *IngestError) Unwrap() error {
	return ingestError.Err
}

func (ingestError *IngestError) Is(target error) bool {
	return target == kindSentinel(ingestError.Kind)
}

// KindOf extracts the ErrorKind from err when it wraps an IngestError.
func KindOf(err error) (ErrorKind, bool) {
	var ingestError *IngestError
	if !errors.As(err, &ingestError) {
		return "", false
	}
	return ingestError.Kind, true
}

func newIngestError(kind ErrorKind, path string, cause error) *IngestError {
	return &IngestError{Kind: kind, Path: path, Err: cause}
}

func kindSentinel(kind ErrorKind) error {
	switch kind {
	case KindCorruptArchive:
		return ErrCorruptArchive
	case KindMissingRequiredEntry:
		return ErrMissingRequiredEntry
	case KindMalformedJSON:
		return ErrMalformedJSON
	default:
		return ErrDecodeError
	}
}
