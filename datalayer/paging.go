package datalayer

// DefaultPageSize is the page size used by list endpoints.
const DefaultPageSize = 12

// PageCount returns how many pages of size hold total items. Sizes below one
// use DefaultPageSize.
func PageCount(total, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
