package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sector is an organizational unit and the default scope for automation
// visibility. Slug is a stable external identifier, unlike ID.
type Sector struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   Timestamp `json:"created_at,omitempty"`
}

// SectorRequest is the payload for POST /sectors and PUT /sectors/{id}.
type SectorRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Validate checks that the request is well-formed. A blank slug is derived
// from the name.
func (r *SectorRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrValidation("sector name is required")
	}
	if strings.TrimSpace(r.Slug) == "" {
		r.Slug = Slugify(r.Name)
	}
	if r.Slug == "" {
		return ErrValidation("sector slug is required")
	}
	if err := validate.Var(r.Slug, "slug"); err != nil {
		return ErrValidation("slug %q must be lowercase letters, digits and hyphens", r.Slug)
	}
	return nil
}

// Slugify lowercases s, strips accents and joins the remaining
// alphanumeric runs with hyphens: "Recursos Humanos" -> "recursos-humanos".
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingDash = true
		}
	}
	return b.String()
}
