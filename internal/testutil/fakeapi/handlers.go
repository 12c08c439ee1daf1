package fakeapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"automation-hub/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if detail == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": "Invalid JSON body"}},
		})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return 0, false
	}
	return id, true
}

// --- auth ---

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accountByEmail(in.Email)
	if acct == nil || acct.password != in.Password {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !acct.user.IsActive {
		writeDetail(w, http.StatusForbidden, "User account is inactive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": s.mint(acct.user.Email, s.tokenTTL),
		"token_type":   "bearer",
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.accounts[callerID(r)].user.UserProfile)
}

// --- automations ---

func (s *Server) listAutomations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caller := s.accounts[callerID(r)].user
	out := []domain.Automation{}
	for _, id := range s.sortedAutomationIDs() {
		a := s.automations[id]
		if caller.IsAdmin || caller.Role.SeesAllAutomations() || s.visibleTo(caller, a) {
			out = append(out, *a)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// visibleTo must be called with s.mu held.
func (s *Server) visibleTo(u domain.User, a *domain.Automation) bool {
	if !a.IsActive {
		return false
	}
	if slices.Contains(a.SectorIDs(), u.SectorID) {
		return true
	}
	return slices.Contains(u.AutomationIDs(), a.ID)
}

func (s *Server) getAutomation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.automations[id]
	if !found {
		writeDetail(w, http.StatusNotFound, "Automation not found")
		return
	}
	caller := s.accounts[callerID(r)].user
	if !caller.IsAdmin && !caller.Role.SeesAllAutomations() &&
		!slices.Contains(a.SectorIDs(), caller.SectorID) && !slices.Contains(caller.AutomationIDs(), a.ID) {
		writeDetail(w, http.StatusForbidden, "You don't have access to this automation")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createAutomation(w http.ResponseWriter, r *http.Request) {
	var in domain.AutomationRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &domain.Automation{ID: s.id(), CreatedAt: now()}
	s.applyAutomation(a, in)
	s.automations[a.ID] = a
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) updateAutomation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.AutomationRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.automations[id]
	if !found {
		writeDetail(w, http.StatusNotFound, "Automation not found")
		return
	}
	s.applyAutomation(a, in)
	a.UpdatedAt = now()
	writeJSON(w, http.StatusOK, a)
}

// applyAutomation must be called with s.mu held. Unknown sector ids are
// dropped, as the real server does.
func (s *Server) applyAutomation(a *domain.Automation, in domain.AutomationRequest) {
	a.Title = in.Title
	a.Description = in.Description
	a.TargetURL = in.TargetURL
	a.Icon = domain.ParseIcon(string(in.Icon))
	a.IsActive = in.IsActive
	a.Sectors = []domain.SectorRef{}
	for _, sid := range in.SectorIDs {
		if sec, ok := s.sectors[sid]; ok {
			a.Sectors = append(a.Sectors, domain.SectorRef{ID: sec.ID, Name: sec.Name})
		}
	}
}

func (s *Server) deleteAutomation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.automations[id]; !found {
		writeDetail(w, http.StatusNotFound, "Automation not found")
		return
	}
	delete(s.automations, id)
	for _, acct := range s.accounts {
		acct.user.ExtraAutomations = slices.DeleteFunc(acct.user.ExtraAutomations, func(ref domain.AutomationRef) bool {
			return ref.ID == id
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sortedAutomationIDs() []int64 {
	ids := make([]int64, 0, len(s.automations))
	for id := range s.automations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- users ---

type userWrite struct {
	Email         string  `json:"email"`
	FullName      string  `json:"full_name"`
	Password      *string `json:"password"`
	IsAdmin       bool    `json:"is_admin"`
	Role          string  `json:"role"`
	IsActive      *bool   `json:"is_active"`
	SectorID      int64   `json:"sector_id"`
	AutomationIDs []int64 `json:"automation_ids"`
}

// userView must be called with s.mu held. It fills in the denormalized
// sector and automation titles.
func (s *Server) userView(a *account) domain.User {
	u := a.user
	u.Sector = nil
	if sec, ok := s.sectors[u.SectorID]; ok {
		u.Sector = &domain.SectorRef{ID: sec.ID, Name: sec.Name}
	}
	refs := make([]domain.AutomationRef, 0, len(u.ExtraAutomations))
	for _, ref := range u.ExtraAutomations {
		if auto, ok := s.automations[ref.ID]; ok {
			refs = append(refs, domain.AutomationRef{ID: auto.ID, Title: auto.Title})
		}
	}
	u.ExtraAutomations = refs
	return u
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.userView(s.accounts[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.accounts[id]
	if !found {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, s.userView(acct))
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in userWrite
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountByEmail(in.Email) != nil {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if _, ok := s.sectors[in.SectorID]; !ok {
		writeDetail(w, http.StatusBadRequest, "Sector not found")
		return
	}
	if in.Password == nil || *in.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "password is required")
		return
	}
	acct := &account{password: *in.Password}
	acct.user.ID = s.id()
	acct.user.IsActive = true
	acct.user.CreatedAt = now()
	s.applyUser(acct, in)
	s.accounts[acct.user.ID] = acct
	writeJSON(w, http.StatusCreated, s.userView(acct))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in userWrite
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.accounts[id]
	if !found {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if other := s.accountByEmail(in.Email); other != nil && other != acct {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	if in.Password != nil {
		acct.password = *in.Password
	}
	s.applyUser(acct, in)
	writeJSON(w, http.StatusOK, s.userView(acct))
}

// applyUser must be called with s.mu held.
func (s *Server) applyUser(acct *account, in userWrite) {
	u := &acct.user
	u.Email = in.Email
	u.FullName = in.FullName
	u.IsAdmin = in.IsAdmin
	u.Role = domain.ParseRole(in.Role)
	if in.Role == "" && in.IsAdmin {
		u.Role = domain.RoleAdmin
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	u.SectorID = in.SectorID
	u.ExtraAutomations = []domain.AutomationRef{}
	for _, aid := range in.AutomationIDs {
		if _, ok := s.automations[aid]; ok {
			u.ExtraAutomations = append(u.ExtraAutomations, domain.AutomationRef{ID: aid})
		}
	}
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == callerID(r) {
		writeDetail(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	if _, found := s.accounts[id]; !found {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.accounts, id)
	w.WriteHeader(http.StatusNoContent)
}

// --- sectors ---

func (s *Server) listSectors(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.sectors))
	for id := range s.sectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]domain.Sector, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.sectors[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSector(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, found := s.sectors[id]
	if !found {
		writeDetail(w, http.StatusNotFound, "Sector not found")
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (s *Server) createSector(w http.ResponseWriter, r *http.Request) {
	var in domain.SectorRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugTaken(in.Slug, 0) {
		writeDetail(w, http.StatusBadRequest, "Sector with this slug already exists")
		return
	}
	sec := &domain.Sector{ID: s.id(), Name: in.Name, Slug: in.Slug, Description: in.Description, CreatedAt: now()}
	s.sectors[sec.ID] = sec
	writeJSON(w, http.StatusCreated, sec)
}

func (s *Server) updateSector(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.SectorRequest
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, found := s.sectors[id]
	if !found {
		writeDetail(w, http.StatusNotFound, "Sector not found")
		return
	}
	if s.slugTaken(in.Slug, id) {
		writeDetail(w, http.StatusBadRequest, "Sector with this slug already exists")
		return
	}
	sec.Name, sec.Slug, sec.Description = in.Name, in.Slug, in.Description
	for _, a := range s.automations {
		for i := range a.Sectors {
			if a.Sectors[i].ID == id {
				a.Sectors[i].Name = in.Name
			}
		}
	}
	writeJSON(w, http.StatusOK, sec)
}

// slugTaken must be called with s.mu held.
func (s *Server) slugTaken(slug string, except int64) bool {
	for id, sec := range s.sectors {
		if id != except && strings.EqualFold(sec.Slug, slug) {
			return true
		}
	}
	return false
}

func (s *Server) deleteSector(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.sectors[id]; !found {
		writeDetail(w, http.StatusNotFound, "Sector not found")
		return
	}
	delete(s.sectors, id)
	for _, a := range s.automations {
		a.Sectors = slices.DeleteFunc(a.Sectors, func(ref domain.SectorRef) bool { return ref.ID == id })
	}
	w.WriteHeader(http.StatusNoContent)
}
