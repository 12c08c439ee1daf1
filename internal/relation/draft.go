package relation

import (
	"strings"

	"automation-hub/internal/domain"
)

// AutomationDraft is the staged state of an automation create or edit form.
type AutomationDraft struct {
	ID          int64
	Title       string
	Description string
	TargetURL   string
	Icon        domain.Icon
	IsActive    bool
	Sectors     *IDSet
}

// NewAutomationDraft starts a create form: bot icon, active, no sectors.
func NewAutomationDraft() *AutomationDraft {
	return &AutomationDraft{Icon: domain.IconBot, IsActive: true, Sectors: NewIDSet()}
}

// EditAutomation seeds a draft from a as currently loaded.
func EditAutomation(a domain.Automation) *AutomationDraft {
	return &AutomationDraft{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		TargetURL:   a.TargetURL,
		Icon:        a.Icon,
		IsActive:    a.IsActive,
		Sectors:     NewIDSet(a.SectorIDs()...),
	}
}

// IsNew reports whether the draft creates rather than edits.
func (d *AutomationDraft) IsNew() bool { return d.ID == 0 }

// Input validates the draft and builds the write payload. The full sector
// set is sent.
func (d *AutomationDraft) Input() (domain.AutomationRequest, error) {
	if d.Sectors == nil {
		d.Sectors = NewIDSet()
	}
	in := domain.AutomationRequest{
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		TargetURL:   strings.TrimSpace(d.TargetURL),
		Icon:        d.Icon,
		IsActive:    d.IsActive,
		SectorIDs:   d.Sectors.IDs(),
	}
	if err := in.Validate(); err != nil {
		return domain.AutomationRequest{}, err
	}
	return in, nil
}

// UserDraft is the staged state of a user create or edit form. On edit a
// blank Password means "keep the current one".
type UserDraft struct {
	ID          int64
	Email       string
	FullName    string
	Password    string
	IsAdmin     bool
	Role        domain.Role
	IsActive    bool
	SectorID    int64
	Automations *IDSet
}

// NewUserDraft starts a create form for an active regular user.
func NewUserDraft() *UserDraft {
	return &UserDraft{Role: domain.RoleUser, IsActive: true, Automations: NewIDSet()}
}

// EditUser seeds a draft from u as currently loaded.
func EditUser(u domain.User) *UserDraft {
	return &UserDraft{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsAdmin:     u.IsAdmin,
		Role:        u.Role,
		IsActive:    u.IsActive,
		SectorID:    u.SectorID,
		Automations: NewIDSet(u.AutomationIDs()...),
	}
}

// IsNew reports whether the draft creates rather than edits.
func (d *UserDraft) IsNew() bool { return d.ID == 0 }

// CreateInput validates the draft as a new user.
func (d *UserDraft) CreateInput() (domain.CreateUserRequest, error) {
	d.ensureSet()
	in := domain.CreateUserRequest{
		Email:         strings.TrimSpace(d.Email),
		FullName:      strings.TrimSpace(d.FullName),
		Password:      d.Password,
		IsAdmin:       d.IsAdmin,
		Role:          d.role(),
		SectorID:      d.SectorID,
		AutomationIDs: d.Automations.IDs(),
	}
	if err := in.Validate(); err != nil {
		return domain.CreateUserRequest{}, err
	}
	return in, nil
}

// UpdateInput validates the draft as an edit. A blank password is left out
// of the payload.
func (d *UserDraft) UpdateInput() (domain.UpdateUserRequest, error) {
	d.ensureSet()
	pw := d.Password
	in := domain.UpdateUserRequest{
		Email:         strings.TrimSpace(d.Email),
		FullName:      strings.TrimSpace(d.FullName),
		Password:      &pw,
		IsAdmin:       d.IsAdmin,
		Role:          d.role(),
		IsActive:      d.IsActive,
		SectorID:      d.SectorID,
		AutomationIDs: d.Automations.IDs(),
	}
	if err := in.Validate(); err != nil {
		return domain.UpdateUserRequest{}, err
	}
	return in, nil
}

func (d *UserDraft) ensureSet() {
	if d.Automations == nil {
		d.Automations = NewIDSet()
	}
}

func (d *UserDraft) role() domain.Role {
	if d.IsAdmin {
		return domain.RoleAdmin
	}
	if d.Role == domain.RoleAdmin {
		return domain.RoleUser
	}
	return d.Role
}

// SectorDraft is the staged state of a sector create or edit form.
type SectorDraft struct {
	ID          int64
	Name        string
	Slug        string
	Description string
}

// NewSectorDraft starts an empty create form.
func NewSectorDraft() *SectorDraft { return &SectorDraft{} }

// EditSector seeds a draft from s as currently loaded.
func EditSector(s domain.Sector) *SectorDraft {
	return &SectorDraft{ID: s.ID, Name: s.Name, Slug: s.Slug, Description: s.Description}
}

// IsNew reports whether the draft creates rather than edits.
func (d *SectorDraft) IsNew() bool { return d.ID == 0 }

// Input validates the draft. A blank slug is derived from the name.
func (d *SectorDraft) Input() (domain.SectorRequest, error) {
	in := domain.SectorRequest{Name: d.Name, Slug: strings.TrimSpace(d.Slug), Description: d.Description}
	if err := in.Validate(); err != nil {
		return domain.SectorRequest{}, err
	}
	return in, nil
}
