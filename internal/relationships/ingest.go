package relationships

import (
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/f-sync/followcheck/internal/archive"
)

const (
	FollowersEntryPath = "connections/followers_and_following/followers_1.json"
	FollowingEntryPath = "connections/followers_and_following/following.json"
	PendingEntryPath   = "connections/followers_and_following/pending_follow_requests.json"
)

// sourceText is the extracted text of one archive entry.
type sourceText struct {
	path    string
	present bool
	text    string
	err     error
}

// IngestArchive reads the export entries from a ZIP payload and derives a snapshot.
// It returns an IngestError describing the first problem found; no partial snapshot is produced.
func IngestArchive(payload []byte) (Snapshot, error) {
	exportArchive, err := archive.Open(payload)
	if err != nil {
		return Snapshot{}, newIngestError(KindCorruptArchive, "", err)
	}
	return ingest(exportArchive)
}

// IngestFile ingests the ZIP archive stored at path.
func IngestFile(path string) (Snapshot, error) {
	exportArchive, err := archive.OpenFile(path)
	if err != nil {
		if errors.Is(err, archive.ErrCorruptArchive) {
			return Snapshot{}, newIngestError(KindCorruptArchive, path, err)
		}
		return Snapshot{}, err
	}
	return ingest(exportArchive)
}

func ingest(exportArchive *archive.Archive) (Snapshot, error) {
	followersEntry, followersFound := exportArchive.Entry(FollowersEntryPath)
	if !followersFound {
		return Snapshot{}, newIngestError(KindMissingRequiredEntry, FollowersEntryPath, errEntryNotFound)
	}
	followingEntry, followingFound := exportArchive.Entry(FollowingEntryPath)
	if !followingFound {
		return Snapshot{}, newIngestError(KindMissingRequiredEntry, FollowingEntryPath, errEntryNotFound)
	}
	pendingEntry, pendingFound := exportArchive.Entry(PendingEntryPath)

	sources := []*sourceText{
		{path: FollowersEntryPath, present: true},
		{path: FollowingEntryPath, present: true},
		{path: PendingEntryPath, present: pendingFound},
	}
	entries := []*archive.EntryHandle{followersEntry, followingEntry, pendingEntry}

	var extraction errgroup.Group
	for index, source := range sources {
		if !source.present {
			continue
		}
		source, entry := source, entries[index]
		extraction.Go(func() error {
			source.text, source.err = entry.ReadText()
			return source.err
		})
	}
	if err := extraction.Wait(); err != nil {
		// Wait returns whichever read failed first in time; report in entry order instead.
		for _, source := range sources {
			if source.err != nil {
				return Snapshot{}, classifyReadError(source.path, source.err)
			}
		}
	}

	followers, err := DecodeFollowers([]byte(sources[0].text))
	if err != nil {
		return Snapshot{}, newIngestError(KindMalformedJSON, FollowersEntryPath, err)
	}
	following, err := DecodeFollowing([]byte(sources[1].text))
	if err != nil {
		return Snapshot{}, newIngestError(KindMalformedJSON, FollowingEntryPath, err)
	}
	var pending *PendingContainer
	if sources[2].present {
		decodedPending, err := DecodePending([]byte(sources[2].text))
		if err != nil {
			return Snapshot{}, newIngestError(KindMalformedJSON, PendingEntryPath, err)
		}
		pending = &decodedPending
	}

	return Derive(followers, following, pending)
}

func classifyReadError(path string, err error) error {
	if errors.Is(err, archive.ErrInvalidText) {
		return newIngestError(KindDecodeError, path, err)
	}
	return newIngestError(KindCorruptArchive, path, err)
}
