package geocoding

import "errors"

// Backend failure kinds. Backends wrap one of these so the resolver can classify failures.
var (
	ErrNoResult = errors.New("geocoding: no result")
	ErrNetwork  = errors.New("geocoding: network error")
	ErrTimeout  = errors.New("geocoding: timeout")
)

// failureStatus maps a backend error to a metrics label
func failureStatus(err error) string {
	switch {
	case errors.Is(err, ErrNoResult):
		return "no_result"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "error"
	}
}
