package catalog

import "fmt"

// ErrEmptySelection indicates the selected groups resolved to zero
// playable items. Starting a session with an empty queue is a caller
// error, surfaced to the user as "select at least one item".
type ErrEmptySelection struct {
	SelectedIDs []string
}

func (e *ErrEmptySelection) Error() string {
	return fmt.Sprintf("no playable items in selection (%d ids)", len(e.SelectedIDs))
}

// ErrContentLoad indicates the catalog document could not be fetched
// or parsed.
type ErrContentLoad struct {
	Source string
	Err    error
}

func (e *ErrContentLoad) Error() string {
	return fmt.Sprintf("load catalog from %s: %v", e.Source, e.Err)
}

func (e *ErrContentLoad) Unwrap() error { return e.Err }
