// Package catalog models the static content catalog and builds the
// ordered item list a session starts from. Items are immutable facts;
// the queue engine references them but never creates or destroys them.
package catalog

// Item is a single playable learning unit.
type Item struct {
	// ID is globally unique, conventionally "<chapter>/<topic>".
	ID          string `json:"id"`
	Chapter     string `json:"chapter"`
	Topic       string `json:"topic"`
	DisplayName string `json:"displayName"`
	VideoURL    string `json:"videoUrl"`
}

// OrderMode selects how the resolver orders the session queue.
type OrderMode string

const (
	OrderSequential OrderMode = "sequential"
	OrderRandom     OrderMode = "random"
	OrderSmart      OrderMode = "smart"
)

// GroupByChapter buckets items by chapter, preserving catalog order
// within each bucket.
func GroupByChapter(items []Item) map[string][]Item {
	grouped := make(map[string][]Item)
	for _, it := range items {
		grouped[it.Chapter] = append(grouped[it.Chapter], it)
	}
	return grouped
}
