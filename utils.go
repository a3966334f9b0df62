package diaspora

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// idString normalizes a decoded JSON id (number or string) to its
// string form.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case json.Number:
		return id.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// titlecase upper-cases the first byte of an ASCII identifier, which
// is how the pod's own UI renders service names (twitter → Twitter).
func titlecase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// normalizeAspects maps a caller's aspect selection onto the wire
// format: the literal string "public" when the selection is empty or
// includes the public aspect, otherwise the cleaned list of ids.
func normalizeAspects(aspects []string) any {
	var ids []string
	for _, a := range aspects {
		a = strings.TrimSpace(strings.ReplaceAll(a, ",", ""))
		if a == "" {
			continue
		}
		if a == AspectPublic {
			return AspectPublic
		}
		ids = append(ids, a)
	}
	if len(ids) == 0 {
		return AspectPublic
	}
	return ids
}
