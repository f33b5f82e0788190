package pivot

import "strconv"

// Page is an offset/limit pagination request. A Limit of zero or less
// disables windowing entirely.
type Page struct {
	Offset int
	Limit  int
}

// LowerBound maps a page offset onto the first group key of the window.
// The empty string means "no lower bound". An offset whose decimal
// rendering appears as a key value promotes the offset to a positional
// index into the sorted keys; numeric group keys rely on this coincidence.
// Anything else, including an offset beyond the collection, starts the
// window at the final key.
func LowerBound(offset int, keys []string) string {
	if offset <= 0 || len(keys) == 0 {
		return ""
	}

	if containsKey(keys, strconv.Itoa(offset)) && offset < len(keys) {
		return keys[offset]
	}
	return keys[len(keys)-1]
}

// UpperBound maps a page onto the last group key of the window. The empty
// string means "no upper bound" and callers skip range filtering entirely
// in that case. A window ending exactly one past the final key produces no
// upper bound; overshooting further clamps to the final key.
func UpperBound(offset, limit int, keys []string) string {
	if limit <= 0 || len(keys) == 0 {
		return ""
	}

	next := offset + limit - 1
	switch {
	case next < len(keys):
		return keys[next]
	case next == len(keys):
		return ""
	default:
		return keys[len(keys)-1]
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
