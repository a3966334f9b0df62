package diaspora

import "time"

// Post is the pod's representation of a published status message, as
// returned by a successful publish.
type Post struct {
	ID                  int       `json:"id"`
	GUID                string    `json:"guid"`
	Public              bool      `json:"public"`
	Text                string    `json:"text"`
	CreatedAt           time.Time `json:"created_at"`
	ProviderDisplayName string    `json:"provider_display_name"`

	// Permalink is computed by the client from the pod URL and the
	// post's guid; the pod does not send it.
	Permalink string `json:"permalink,omitempty"`
}

// Item kinds accepted by Delete.
const (
	DeletablePost    = "post"
	DeletableComment = "comment"
)

// AspectPublic is the reserved aspect visible to everyone. The wire
// protocol accepts it as a literal string where aspect id lists go.
const AspectPublic = "public"
