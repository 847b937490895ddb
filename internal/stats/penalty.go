package stats

// PenaltyLimitMs is the search time allowed for a checkpoint before the
// penalty indicator shows. Harder tiers and concurrent searches in the same
// group each stretch the allowance.
func PenaltyLimitMs(baseMs int64, tier, searching int) int64 {
	if tier < 1 {
		tier = 1
	}
	if searching < 1 {
		searching = 1
	}
	return baseMs * int64(tier) * int64(searching)
}

// PenaltyDue reports whether a search has run past its allowance. It is a
// display hint only and never resolves a checkpoint.
func PenaltyDue(elapsedMs, baseMs int64, tier, searching int) bool {
	if baseMs <= 0 {
		return false
	}
	return elapsedMs > PenaltyLimitMs(baseMs, tier, searching)
}
