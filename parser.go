package diaspora

import (
	"encoding/json"
	"regexp"
)

// The pod embeds everything the client needs inside pages it serves to
// browsers; there is no structured listing API. Extraction is pattern
// based on purpose, each artifact is optional, and a malformed block
// is treated the same as an absent one.
var (
	tokenNameFirst    = regexp.MustCompile(`<meta[^>]*name="csrf-token"[^>]*content="([^"]+)"`)
	tokenContentFirst = regexp.MustCompile(`<meta[^>]*content="([^"]+)"[^>]*name="csrf-token"`)
	aspectsBlock      = regexp.MustCompile(`(?s)"aspects":(\[.*?\])`)
	servicesBlock     = regexp.MustCompile(`(?s)"configured_services":(\[.*?\])`)
)

// parseToken returns the CSRF token embedded in a response body, or
// "" when none is present. Both meta attribute orders occur in the
// wild, depending on the pod version.
func parseToken(body string) string {
	if m := tokenNameFirst.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := tokenContentFirst.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// parseAspects returns the personal aspects listed in a response body,
// keyed by id. Aspect ids arrive as JSON numbers or strings depending
// on the pod version; keys are normalized to strings either way.
func parseAspects(body string) (map[string]string, bool) {
	m := aspectsBlock.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}
	var entries []struct {
		ID   any    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(m[1]), &entries); err != nil {
		return nil, false
	}
	aspects := map[string]string{}
	for _, entry := range entries {
		id := idString(entry.ID)
		if id == "" {
			continue
		}
		aspects[id] = entry.Name
	}
	return aspects, true
}

// parseServices returns the identifiers of the services the pod is
// connected to. An empty array is a valid result.
func parseServices(body string) ([]string, bool) {
	m := servicesBlock.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}
	var services []string
	if err := json.Unmarshal([]byte(m[1]), &services); err != nil {
		return nil, false
	}
	return services, true
}
