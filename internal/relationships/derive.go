package relationships

// Derive normalizes the decoded export documents and computes the not-following-back list.
// pending may be nil when the archive has no pending requests document. Any wrapper that
// cannot be normalized fails the whole derivation with a MalformedJSON IngestError.
func Derive(followers FollowersList, following FollowingContainer, pending *PendingContainer) (Snapshot, error) {
	followerRecords, err := normalizeWrappers(followers, sourceKindFollowers)
	if err != nil {
		return Snapshot{}, newIngestError(KindMalformedJSON, FollowersEntryPath, err)
	}

	var followingWrappers []Wrapper
	if following.RelationshipsFollowing != nil {
		followingWrappers = *following.RelationshipsFollowing
	}
	followingRecords, err := normalizeWrappers(followingWrappers, sourceKindFollowing)
	if err != nil {
		return Snapshot{}, newIngestError(KindMalformedJSON, FollowingEntryPath, err)
	}

	pendingRecords := []UserRecord{}
	if pending != nil && pending.RelationshipsFollowRequestsSent != nil {
		pendingRecords, err = normalizeWrappers(*pending.RelationshipsFollowRequestsSent, sourceKindPendingRequests)
		if err != nil {
			return Snapshot{}, newIngestError(KindMalformedJSON, PendingEntryPath, err)
		}
	}

	return NewSnapshot(followerRecords, followingRecords, pendingRecords), nil
}

// NewSnapshot assembles a snapshot from normalized lists, recomputing the not-following-back
// list and starting with an empty ignored set.
func NewSnapshot(followers []UserRecord, following []UserRecord, pending []UserRecord) Snapshot {
	if followers == nil {
		followers = []UserRecord{}
	}
	if following == nil {
		following = []UserRecord{}
	}
	if pending == nil {
		pending = []UserRecord{}
	}
	return Snapshot{
		Followers:        followers,
		Following:        following,
		NotFollowingBack: NotFollowingBack(followers, following),
		Pending:          pending,
		IgnoredHandles:   map[string]struct{}{},
	}
}

// NotFollowingBack returns the entries of following whose handle does not occur in followers,
// in the order of following. Handles are compared by exact string equality.
func NotFollowingBack(followers []UserRecord, following []UserRecord) []UserRecord {
	followerHandles := make(map[string]struct{}, len(followers))
	for _, follower := range followers {
		followerHandles[follower.Handle] = struct{}{}
	}

	notFollowingBack := make([]UserRecord, 0, len(following))
	for _, followed := range following {
		if _, followsBack := followerHandles[followed.Handle]; !followsBack {
			notFollowingBack = append(notFollowingBack, followed)
		}
	}
	return notFollowingBack
}
