package session

// ErrEmptyQueue indicates Start was called with zero items.
type ErrEmptyQueue struct{}

func (e *ErrEmptyQueue) Error() string {
	return "cannot start a session with an empty queue"
}
