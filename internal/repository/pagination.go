package repository

import "math"

// Page represents a simple limit/offset window for listing operations.
// I keep it intentionally small; page numbering belongs to higher layers.
type Page struct {
	Limit  int
	Offset int
}

// MaxPageNumber is the highest page whose offset still fits in 32 bits for the given size.
func MaxPageNumber(size int) int {
	if size < 1 {
		size = 1
	}
	return math.MaxInt32 / size
}

// PageOf converts a 1-based page number and a page size into a window.
// Numbers below 1 are treated as 1, numbers above MaxPageNumber as MaxPageNumber.
func PageOf(number, size int) Page {
	if size < 1 {
		size = 1
	}
	if number < 1 {
		number = 1
	}
	if last := MaxPageNumber(size); number > last {
		number = last
	}
	return Page{Limit: size, Offset: (number - 1) * size}
}
