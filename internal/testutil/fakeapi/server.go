// Package fakeapi is an in-process stand-in for the Automation Hub REST
// API, used by tests across the module. It keeps its catalogs in memory,
// issues HS256 tokens and records every request it serves.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"automation-hub/internal/domain"
)

// Prefix is the API mount point, matching the production deployment.
const Prefix = "/api/v1"

type account struct {
	user     domain.User
	password string
}

type failure struct {
	status int
	detail string
}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	secret      []byte
	tokenTTL    time.Duration
	nextID      int64
	accounts    map[int64]*account
	automations map[int64]*domain.Automation
	sectors     map[int64]*domain.Sector
	hits        map[string]int
	bodies      map[string][]byte
	failures    map[string]failure
	gates       map[string]chan struct{}
}

// New starts a fake API and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:      []byte("fakeapi-secret"),
		tokenTTL:    time.Hour,
		accounts:    make(map[int64]*account),
		automations: make(map[int64]*domain.Automation),
		sectors:     make(map[int64]*domain.Sector),
		hits:        make(map[string]int),
		bodies:      make(map[string][]byte),
		failures:    make(map[string]failure),
		gates:       make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the URL clients should be configured with.
func (s *Server) BaseURL() string { return s.URL + Prefix }

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.record)
	r.Route(Prefix, func(r chi.Router) {
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/auth/me", s.me)

			r.Get("/automations", s.listAutomations)
			r.Get("/automations/{id}", s.getAutomation)
			r.Get("/sectors", s.listSectors)
			r.Get("/sectors/{id}", s.getSector)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/automations", s.createAutomation)
				r.Put("/automations/{id}", s.updateAutomation)
				r.Delete("/automations/{id}", s.deleteAutomation)

				r.Get("/users", s.listUsers)
				r.Get("/users/{id}", s.getUser)
				r.Post("/users", s.createUser)
				r.Put("/users/{id}", s.updateUser)
				r.Delete("/users/{id}", s.deleteUser)

				r.Post("/sectors", s.createSector)
				r.Put("/sectors/{id}", s.updateSector)
				r.Delete("/sectors/{id}", s.deleteSector)
			})
		})
	})
	return r
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// AddSector seeds a sector. A blank slug is derived from the name.
func (s *Server) AddSector(name, slug string) domain.Sector {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slug == "" {
		slug = domain.Slugify(name)
	}
	sec := &domain.Sector{ID: s.id(), Name: name, Slug: slug, CreatedAt: now()}
	s.sectors[sec.ID] = sec
	return *sec
}

// AddUser seeds an account.
func (s *Server) AddUser(email, password, fullName string, role domain.Role, sectorID int64) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{UserProfile: domain.UserProfile{
		ID:        s.id(),
		Email:     email,
		FullName:  fullName,
		IsAdmin:   role == domain.RoleAdmin,
		Role:      role,
		IsActive:  true,
		SectorID:  sectorID,
		CreatedAt: now(),
	}}
	s.accounts[u.ID] = &account{user: u, password: password}
	return s.userView(s.accounts[u.ID])
}

// SetActive flips an account's active flag.
func (s *Server) SetActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		a.user.IsActive = active
	}
}

// AddAutomation seeds an automation.
func (s *Server) AddAutomation(in domain.AutomationRequest) domain.Automation {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &domain.Automation{ID: s.id(), CreatedAt: now()}
	s.applyAutomation(a, in)
	s.automations[a.ID] = a
	return *a
}

// Grant adds extra automation grants to a user.
func (s *Server) Grant(userID int64, automationIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return
	}
	for _, id := range automationIDs {
		a.user.ExtraAutomations = append(a.user.ExtraAutomations, domain.AutomationRef{ID: id})
	}
}

// Token mints a token for email that expires after ttl. A negative ttl
// yields an already expired token.
func (s *Server) Token(email string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mint(email, ttl)
}

func (s *Server) mint(email string, ttl time.Duration) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(ttl).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("fakeapi: sign token: %v", err))
	}
	return tok
}

// RevokeTokens invalidates every token issued so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = append([]byte("rotated-"), s.secret...)
}

// Hits returns how many times method path was requested. path excludes
// the API prefix, e.g. "/automations".
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// TotalHits returns the number of method requests served.
func (s *Server) TotalHits(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.hits {
		if len(k) > len(method) && k[:len(method)+1] == method+" " {
			n += v
		}
	}
	return n
}

// LastBody returns the decoded JSON body of the last method path request.
func (s *Server) LastBody(method, path string) map[string]any {
	s.mu.Lock()
	raw := s.bodies[method+" "+path]
	s.mu.Unlock()
	if raw == nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// FailNext makes the next method path request answer status with detail.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, detail: detail}
}

// Hold blocks method path requests until the returned release is called.
func (s *Server) Hold(method, path string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gates[method+" "+path] = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, method+" "+path)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// AutomationIDs lists the stored automation ids in ascending order.
func (s *Server) AutomationIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedAutomationIDs()
}

func now() domain.Timestamp {
	return domain.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
}
