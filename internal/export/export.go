// Package export serializes relationship lists for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/f-sync/followcheck/internal/relationships"
)

// Format selects the serialization of an exported list.
type Format string

const (
	FormatJSON      Format = "json"
	FormatJSONLines Format = "jsonl"
	FormatCSV       Format = "csv"

	csvHeaderUsername       = "Username"
	csvHeaderTimestamp      = "Timestamp"
	missingTimestampText    = "N/A"
	isoTimestampLayout      = "2006-01-02T15:04:05.000Z"
	fileDateLayout          = "2006-01-02"
	fileNameFormat          = "instagram-%s-%s.%s"
	jsonIndent              = "  "
	contentTypeJSON         = "application/json"
	contentTypeJSONLines    = "application/x-ndjson"
	contentTypeCSV          = "text/csv"
	errMessageUnknownFormat = "unknown export format"
	errMessageNotAnArray    = "ignored list must be a JSON array of strings"
	unknownFormatErrorFmt   = "%w: %q"
)

var (
	// ErrUnknownFormat is returned for formats outside the supported set.
	ErrUnknownFormat = errors.New(errMessageUnknownFormat)
	// ErrNotAnArray is returned when an imported ignored list is not a JSON array of strings.
	ErrNotAnArray = errors.New(errMessageNotAnArray)
)

// ParseFormat validates a format name. An empty value selects FormatJSON.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatJSONLines, FormatCSV:
		return Format(value), nil
	default:
		return "", fmt.Errorf(unknownFormatErrorFmt, ErrUnknownFormat, value)
	}
}

// ContentType returns the MIME type of format.
func (format Format) ContentType() string {
	switch format {
	case FormatJSONLines:
		return contentTypeJSONLines
	case FormatCSV:
		return contentTypeCSV
	default:
		return contentTypeJSON
	}
}

// FileName builds the download name for list, e.g. instagram-followers-2024-05-01.csv.
func FileName(list string, format Format, now time.Time) string {
	return fmt.Sprintf(fileNameFormat, list, now.Format(fileDateLayout), format)
}

// Write serializes records in format.
func Write(writer io.Writer, format Format, records []relationships.UserRecord) error {
	switch format {
	case FormatJSON:
		return WriteJSON(writer, records)
	case FormatJSONLines:
		return WriteJSONLines(writer, records)
	case FormatCSV:
		return WriteCSV(writer, records)
	default:
		return fmt.Errorf(unknownFormatErrorFmt, ErrUnknownFormat, format)
	}
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(writer io.Writer, records []relationships.UserRecord) error {
	if records == nil {
		records = []relationships.UserRecord{}
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", jsonIndent)
	return encoder.Encode(records)
}

// WriteJSONLines writes one JSON object per line.
func WriteJSONLines(writer io.Writer, records []relationships.UserRecord) error {
	encoder := json.NewEncoder(writer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes a Username,Timestamp table. Timestamps are ISO-8601 in UTC, or N/A when absent.
func WriteCSV(writer io.Writer, records []relationships.UserRecord) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write([]string{csvHeaderUsername, csvHeaderTimestamp}); err != nil {
		return err
	}
	for _, record := range records {
		if err := csvWriter.Write([]string{record.Handle, FormatTimestamp(record)}); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// FormatTimestamp renders the capture time of record as ISO-8601 UTC, or N/A when absent.
func FormatTimestamp(record relationships.UserRecord) string {
	if !record.HasTimestamp() {
		return missingTimestampText
	}
	return time.Unix(record.Timestamp(), 0).UTC().Format(isoTimestampLayout)
}

// WriteIgnored writes ignored handles as an indented JSON array.
func WriteIgnored(writer io.Writer, handles []string) error {
	if handles == nil {
		handles = []string{}
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", jsonIndent)
	return encoder.Encode(handles)
}

// ReadIgnored parses a JSON array of handles previously produced by WriteIgnored.
func ReadIgnored(reader io.Reader) ([]string, error) {
	var handles []string
	if err := json.NewDecoder(reader).Decode(&handles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnArray, err)
	}
	if handles == nil {
		return nil, ErrNotAnArray
	}
	return handles, nil
}
