package session

// Config holds queue engine settings.
type Config struct {
	// ReviewDelay is the number of items the learner sees between
	// marking an item weak and its re-insertion. One intervening item
	// avoids immediate-repeat fatigue while the material is still
	// fresh in working memory.
	ReviewDelay int

	// WatchThreshold is the playback fraction that counts as a
	// completed view. The shell compares positions against it and
	// passes the resulting boolean to Advance.
	WatchThreshold float64
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		ReviewDelay:    1,
		WatchThreshold: 0.5,
	}
}
