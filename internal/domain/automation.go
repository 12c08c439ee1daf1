package domain

import (
	"net/url"
	"strings"
)

// Automation is an externally hosted tool the portal links out to.
// Sectors is the server's denormalized view of the sector allow-list.
type Automation struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	TargetURL   string      `json:"target_url"`
	Icon        Icon        `json:"icon"`
	IsActive    bool        `json:"is_active"`
	Sectors     []SectorRef `json:"sectors"`
	CreatedAt   Timestamp   `json:"created_at,omitempty"`
	UpdatedAt   Timestamp   `json:"updated_at,omitempty"`
}

// SectorIDs returns the ids of the automation's sectors.
func (a *Automation) SectorIDs() []int64 {
	ids := make([]int64, 0, len(a.Sectors))
	for _, s := range a.Sectors {
		ids = append(ids, s.ID)
	}
	return ids
}

// Matches reports whether the title or description contains query,
// ignoring case. An empty query matches everything.
func (a *Automation) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), q) ||
		strings.Contains(strings.ToLower(a.Description), q)
}

// AutomationRequest is the payload for POST /automations and
// PUT /automations/{id}. SectorIDs replaces the whole allow-list.
type AutomationRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TargetURL   string  `json:"target_url"`
	Icon        Icon    `json:"icon"`
	IsActive    bool    `json:"is_active"`
	SectorIDs   []int64 `json:"sector_ids"`
}

// Validate checks that the request is well-formed.
func (r *AutomationRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrValidation("title is required")
	}
	if strings.TrimSpace(r.TargetURL) == "" {
		return ErrValidation("target URL is required")
	}
	u, err := url.Parse(r.TargetURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrValidation("target URL must be an absolute http(s) URL")
	}
	if !r.Icon.Known() {
		r.Icon = ParseIcon(string(r.Icon))
	}
	if r.SectorIDs == nil {
		r.SectorIDs = []int64{}
	}
	return nil
}
