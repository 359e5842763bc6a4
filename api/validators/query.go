package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/kudibooks-backend/pkg/errors"
)

// IntBounds is the accepted range for a numeric query parameter and the value
// used when it is absent.
type IntBounds struct {
	Default, Min, Max int
}

// QueryInt reads key as an integer within bounds.
func QueryInt(r *http.Request, key string, bounds IntBounds) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return bounds.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be numeric", nil)
	}
	if value < bounds.Min || value > bounds.Max {
		return 0, queryError(key, "out of range", map[string]any{"min": bounds.Min, "max": bounds.Max})
	}
	return value, nil
}

// QueryEnum parses key with parse, returning nil when the parameter is absent.
func QueryEnum[T ~string](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := QueryString(r, key, 64)
	if raw == "" {
		return nil, nil
	}
	value, err := parse(strings.ToLower(raw))
	if err != nil {
		return nil, queryError(key, "is not a recognised value", map[string]any{"value": raw})
	}
	return &value, nil
}

// QueryString returns the sanitized value of key, capped at maxLen runes.
func QueryString(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

func queryError(key, problem string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "query parameter "+key+" "+problem).WithDetails(details)
}
