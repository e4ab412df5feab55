package ports

import "context"

// LeadLocker serializes work on one lead across processes. The returned
// release function is safe to call more than once.
type LeadLocker interface {
	Lock(ctx context.Context, contactID string) (release func(), err error)
	TryLock(ctx context.Context, contactID string) (release func(), ok bool, err error)
}

// MessageDeduper remembers inbound message IDs. FirstSeen returns true exactly
// once per ID within the retention window. Forget drops an ID whose pass did
// not run, so a redelivery is processed.
type MessageDeduper interface {
	FirstSeen(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}
