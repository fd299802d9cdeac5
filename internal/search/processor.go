package search

// resolveTopK replaces a non-positive topK with the configured default.
func resolveTopK(topK, defaultTopK int) int {
	if topK > 0 {
		return topK
	}
	if defaultTopK > 0 {
		return defaultTopK
	}
	return 5
}

// fetchSize over-fetches multiplier*topK candidates, bounded by the store size.
func fetchSize(topK, multiplier, size int) int {
	if multiplier < 1 {
		multiplier = 1
	}
	return min(topK*multiplier, size)
}
