package session

// retryKind tags what the counter is currently counting.
type retryKind uint8

const (
	retryNormal retryKind = iota
	retryGarbled
	retryLockRequest
)

// Allowed consecutive failures before the throttle acts.
const (
	maxGarbledReplies = 2
	maxLockAttempts   = 3
)

// retryCounter counts consecutive failures of one kind. Switching kinds
// restarts the count. Not safe for concurrent use; the authenticator's
// lock covers it.
type retryCounter struct {
	kind retryKind
	n    int
}

// bump records one failure of the given kind and returns the new count.
func (r *retryCounter) bump(kind retryKind) int {
	if r.kind != kind {
		r.kind = kind
		r.n = 0
	}
	r.n++
	return r.n
}

// reset returns the counter to the normal posture.
func (r *retryCounter) reset() {
	r.kind = retryNormal
	r.n = 0
}
