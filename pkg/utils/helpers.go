// Package utils provides small helpers shared across the application.
package utils

// Map applies fn to every element of coll and returns the results.
func Map[A any, B any](coll []A, fn func(i A, index uint64) B) []B {
	out := make([]B, 0, len(coll))
	for i, item := range coll {
		out = append(out, fn(item, uint64(i)))
	}
	return out
}
