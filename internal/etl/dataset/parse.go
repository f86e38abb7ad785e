package dataset

import "sort"

// firstMetric returns index 0 of a metric list, or a zero entry when the list
// is empty or null. Documents carry exactly one instrument/metric per entry;
// consuming only the first element is the modeling rule, not an aggregation.
func firstMetric(list []metricEntry) metricEntry {
	if len(list) == 0 {
		return metricEntry{}
	}
	return list[0]
}

// sortedRegions returns the hoverData map keys in lexicographic order so a
// document always normalizes to the same row order.
func sortedRegions(m map[string]regionUsers) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
