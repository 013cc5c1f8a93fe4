package mymcp

// truncateRows caps a result set at max rows. The kept prefix is stable:
// rows keep their original order and nothing is resampled, so the same
// query over the same data yields the same prefix.
func truncateRows(rows []map[string]any, max int) ([]map[string]any, bool) {
	if max <= 0 || len(rows) <= max {
		return rows, false
	}
	return rows[:max], true
}
