package domain

import (
	"encoding/json"
	"strings"
)

// UserProfile is the signed-in user as returned by GET /auth/me. The
// session store replaces it wholesale on every fetch.
type UserProfile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	SectorID  int64     `json:"sector_id"`
	CreatedAt Timestamp `json:"created_at,omitempty"`
}

// UnmarshalJSON fills in the role when the server omits it.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	type alias UserProfile
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = UserProfile(raw)
	p.Role = defaultRole(p.Role, p.IsAdmin)
	return nil
}

// Initial returns the upper-cased first letter of the user's name, or "?"
// when the name is empty.
func (p *UserProfile) Initial() string {
	for _, r := range p.FullName {
		return strings.ToUpper(string(r))
	}
	return "?"
}

func defaultRole(r Role, isAdmin bool) Role {
	if r != "" {
		return r
	}
	if isAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// SectorRef is the denormalized sector shape nested in other entities.
type SectorRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AutomationRef is the denormalized automation shape nested in users.
type AutomationRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// User is an entry in the admin user catalog.
type User struct {
	UserProfile
	Sector           *SectorRef      `json:"sector,omitempty"`
	ExtraAutomations []AutomationRef `json:"extra_automations,omitempty"`
}

// UnmarshalJSON decodes the embedded profile with its role defaulting and
// then the catalog-only fields.
func (u *User) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &u.UserProfile); err != nil {
		return err
	}
	var extra struct {
		Sector           *SectorRef      `json:"sector"`
		ExtraAutomations []AutomationRef `json:"extra_automations"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	u.Sector = extra.Sector
	u.ExtraAutomations = extra.ExtraAutomations
	return nil
}

// AutomationIDs returns the ids of the user's extra automation grants.
func (u *User) AutomationIDs() []int64 {
	ids := make([]int64, 0, len(u.ExtraAutomations))
	for _, a := range u.ExtraAutomations {
		ids = append(ids, a.ID)
	}
	return ids
}

// SectorName returns the nested sector name, or "N/A".
func (u *User) SectorName() string {
	if u.Sector == nil || u.Sector.Name == "" {
		return "N/A"
	}
	return u.Sector.Name
}

// CreateUserRequest is the POST /users payload.
type CreateUserRequest struct {
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	Password      string  `json:"password"`
	IsAdmin       bool    `json:"is_admin"`
	Role          Role    `json:"role,omitempty"`
	SectorID      int64   `json:"sector_id"`
	AutomationIDs []int64 `json:"automation_ids"`
}

// Validate checks that the request is well-formed.
func (r *CreateUserRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.FullName) == "" {
		return ErrValidation("full name is required")
	}
	if strings.TrimSpace(r.Password) == "" {
		return ErrValidation("password is required")
	}
	if r.SectorID <= 0 {
		return ErrValidation("sector is required")
	}
	if r.AutomationIDs == nil {
		r.AutomationIDs = []int64{}
	}
	return nil
}

// UpdateUserRequest is the PUT /users/{id} payload. A nil Password is
// omitted from the request body so the stored password is left as is.
type UpdateUserRequest struct {
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	Password      *string `json:"password,omitempty"`
	IsAdmin       bool    `json:"is_admin"`
	Role          Role    `json:"role,omitempty"`
	IsActive      bool    `json:"is_active"`
	SectorID      int64   `json:"sector_id"`
	AutomationIDs []int64 `json:"automation_ids"`
}

// Validate checks that the request is well-formed and normalizes a blank
// password to "no change".
func (r *UpdateUserRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.FullName) == "" {
		return ErrValidation("full name is required")
	}
	if r.SectorID <= 0 {
		return ErrValidation("sector is required")
	}
	if r.Password != nil && strings.TrimSpace(*r.Password) == "" {
		r.Password = nil
	}
	if r.AutomationIDs == nil {
		r.AutomationIDs = []int64{}
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrValidation("email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return ErrValidation("invalid email address %q", email)
	}
	return nil
}
