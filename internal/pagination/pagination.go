package pagination

import "github.com/lalith-99/streams/internal/apperr"

// PageSize is the number of messages in one window.
const PageSize = 50

// NoMore is the End value of the last window.
const NoMore = -1

// Page is one window over a newest-first list.
type Page[T any] struct {
	Items []T
	Start int
	// End is where the next window starts, or NoMore if this window
	// reached the oldest item.
	End int
}

// Window returns up to PageSize items starting at offset start, where 0 is
// the newest item. A start equal to len(items) is legal and yields an
// empty last window. Items are copied so the caller can release any lock
// guarding the source slice.
func Window[T any](items []T, start int) (Page[T], error) {
	if start < 0 {
		return Page[T]{}, apperr.Input("start %d is negative", start)
	}
	if start > len(items) {
		return Page[T]{}, apperr.Input("start %d is past the %d available messages", start, len(items))
	}

	end := start + PageSize
	next := end
	if end >= len(items) {
		end = len(items)
		next = NoMore
	}

	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{Items: out, Start: start, End: next}, nil
}
