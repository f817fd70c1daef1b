package supply

import "fmt"

// WorkKey returns the Redis list holding pending work.
// Pattern: {prefix}:work
func WorkKey(prefix string) string {
	return fmt.Sprintf("%s:work", prefix)
}

// CompletedKey returns the Redis list of completed job records.
// Pattern: {prefix}:completed
func CompletedKey(prefix string) string {
	return fmt.Sprintf("%s:completed", prefix)
}

// DiscardedKey returns the Redis list of discarded job records.
// Pattern: {prefix}:discarded
func DiscardedKey(prefix string) string {
	return fmt.Sprintf("%s:discarded", prefix)
}

// ResultsKey returns the Redis stream of accepted nonces.
// Pattern: {prefix}:results
func ResultsKey(prefix string) string {
	return fmt.Sprintf("%s:results", prefix)
}
