package relation

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automation-hub/internal/domain"
)

func TestIDSet_AddIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		s := NewIDSet()
		seen := map[int64]bool{}
		for i := 0; i < 40; i++ {
			id := int64(rng.Intn(10))
			added := s.Add(id)
			assert.Equal(t, !seen[id], added)
			seen[id] = true
		}
		ids := s.IDs()
		assert.Len(t, ids, len(seen))
		unique := map[int64]bool{}
		for _, id := range ids {
			assert.False(t, unique[id], "duplicate id %d", id)
			unique[id] = true
		}
	}
}

func TestIDSet_KeepsInsertionOrder(t *testing.T) {
	s := NewIDSet(3, 1, 3, 2, 1)
	assert.Equal(t, []int64{3, 1, 2}, s.IDs())
}

func TestIDSet_RemoveAbsentIsNoop(t *testing.T) {
	s := NewIDSet(1, 2, 3)
	assert.False(t, s.Remove(9))
	assert.Equal(t, []int64{1, 2, 3}, s.IDs())

	assert.True(t, s.Remove(2))
	assert.False(t, s.Remove(2))
	assert.Equal(t, []int64{1, 3}, s.IDs())
}

func TestIDSet_Toggle(t *testing.T) {
	s := NewIDSet(1)
	s.Toggle(2)
	s.Toggle(1)
	assert.Equal(t, []int64{2}, s.IDs())
}

func TestIDSet_EmptyEncodesAsArray(t *testing.T) {
	data, err := json.Marshal(map[string]any{"ids": NewIDSet().IDs()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids":[]}`, string(data))
}

func TestIDSet_Equal(t *testing.T) {
	assert.True(t, NewIDSet(1, 2, 3).Equal(NewIDSet(3, 1, 2)))
	assert.False(t, NewIDSet(1, 2).Equal(NewIDSet(1, 2, 3)))
	assert.False(t, NewIDSet(1, 2).Equal(NewIDSet(1, 4)))
	assert.True(t, NewIDSet().Equal(NewIDSet()))
}

func TestIDSet_IDsIsACopy(t *testing.T) {
	s := NewIDSet(1, 2)
	ids := s.IDs()
	ids[0] = 42
	assert.Equal(t, []int64{1, 2}, s.IDs())
}

func TestAutomationDraft_RoundTrip(t *testing.T) {
	a := domain.Automation{
		ID: 4, Title: "Report", TargetURL: "https://tools.example.com/r", Icon: "bar-chart", IsActive: true,
		Sectors: []domain.SectorRef{{ID: 5, Name: "Sales"}, {ID: 2, Name: "Finance"}},
	}
	in, err := EditAutomation(a).Input()
	require.NoError(t, err)
	assert.True(t, NewIDSet(a.SectorIDs()...).Equal(NewIDSet(in.SectorIDs...)))
	assert.Equal(t, domain.Icon("bar-chart"), in.Icon)
}

func TestNewAutomationDraft_Defaults(t *testing.T) {
	d := NewAutomationDraft()
	assert.True(t, d.IsNew())
	assert.Equal(t, domain.IconBot, d.Icon)
	assert.True(t, d.IsActive)

	d.Title = "  Invoices "
	d.TargetURL = "https://tools.example.com/inv"
	in, err := d.Input()
	require.NoError(t, err)
	assert.Equal(t, "Invoices", in.Title)
	assert.Equal(t, []int64{}, in.SectorIDs)
}

func TestAutomationDraft_InvalidInput(t *testing.T) {
	d := NewAutomationDraft()
	d.TargetURL = "https://tools.example.com"
	_, err := d.Input()
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestUserDraft_RoundTrip(t *testing.T) {
	u := domain.User{
		UserProfile:      domain.UserProfile{ID: 3, Email: "bob@x.com", FullName: "Bob", Role: domain.RoleAnalyst, IsActive: true, SectorID: 1},
		ExtraAutomations: []domain.AutomationRef{{ID: 7, Title: "Old"}, {ID: 2, Title: "Report"}},
	}
	d := EditUser(u)
	in, err := d.UpdateInput()
	require.NoError(t, err)
	assert.True(t, NewIDSet(7, 2).Equal(NewIDSet(in.AutomationIDs...)))
	assert.Nil(t, in.Password, "an untouched password field is not sent")
	assert.Equal(t, domain.RoleAnalyst, in.Role)

	d.Password = "fresh"
	in, err = d.UpdateInput()
	require.NoError(t, err)
	require.NotNil(t, in.Password)
	assert.Equal(t, "fresh", *in.Password)
}

func TestUserDraft_Create(t *testing.T) {
	d := NewUserDraft()
	d.Email = "carol@x.com"
	d.FullName = "Carol"
	d.SectorID = 1
	_, err := d.CreateInput()
	require.Error(t, err, "a new user needs a password")

	d.Password = "pw"
	d.IsAdmin = true
	d.Automations.Add(4)
	d.Automations.Add(4)
	in, err := d.CreateInput()
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, in.Role)
	assert.Equal(t, []int64{4}, in.AutomationIDs)
}

func TestZeroValueDrafts(t *testing.T) {
	a := &AutomationDraft{Title: "Report", TargetURL: "https://tools.example.com/r"}
	in, err := a.Input()
	require.NoError(t, err)
	assert.Equal(t, []int64{}, in.SectorIDs)
	a.Sectors.Add(2)
	assert.Equal(t, []int64{2}, a.Sectors.IDs())

	u := &UserDraft{Email: "carol@x.com", FullName: "Carol", Password: "pw", SectorID: 1}
	created, err := u.CreateInput()
	require.NoError(t, err)
	assert.Equal(t, []int64{}, created.AutomationIDs)

	u = &UserDraft{ID: 3, Email: "carol@x.com", FullName: "Carol", SectorID: 1}
	updated, err := u.UpdateInput()
	require.NoError(t, err)
	assert.Equal(t, []int64{}, updated.AutomationIDs)
	assert.Nil(t, updated.Password)
}

func TestIDSet_NilReadsAsEmpty(t *testing.T) {
	var s *IDSet
	assert.Zero(t, s.Len())
	assert.False(t, s.Has(1))
	assert.False(t, s.Remove(1))
	assert.Equal(t, []int64{}, s.IDs())
	assert.True(t, s.Equal(NewIDSet()))
}

func TestSectorDraft(t *testing.T) {
	d := NewSectorDraft()
	d.Name = "Tecnologia da Informação"
	in, err := d.Input()
	require.NoError(t, err)
	assert.Equal(t, "tecnologia-da-informacao", in.Slug)

	e := EditSector(domain.Sector{ID: 2, Name: "Sales", Slug: "sales"})
	assert.False(t, e.IsNew())
	in, err = e.Input()
	require.NoError(t, err)
	assert.Equal(t, "sales", in.Slug)
}

func TestResolve_DanglingReferencesArePreserved(t *testing.T) {
	catalog := []domain.Automation{{ID: 1, Title: "A"}, {ID: 3, Title: "C"}}
	set := NewIDSet(3, 7, 1)
	id := func(a domain.Automation) int64 { return a.ID }

	found, missing := Resolve(set, catalog, id)
	require.Len(t, found, 2)
	assert.Equal(t, "C", found[0].Title)
	assert.Equal(t, "A", found[1].Title)
	assert.Equal(t, []int64{7}, missing)
	assert.Equal(t, []int64{3, 7, 1}, set.IDs(), "resolving never edits the draft")

	dropped := DropMissing(set, catalog, id)
	assert.Equal(t, []int64{7}, dropped)
	assert.Equal(t, []int64{3, 1}, set.IDs())
}

func TestResolve_EmptyCatalog(t *testing.T) {
	found, missing := Resolve(NewIDSet(1, 2), []domain.Sector(nil), func(s domain.Sector) int64 { return s.ID })
	assert.Empty(t, found)
	assert.Equal(t, []int64{1, 2}, missing)
}

func TestEditor_SuccessClosesAndDiscards(t *testing.T) {
	e := NewEditor(NewSectorDraft())
	var submitted *SectorDraft
	err := e.Submit(context.Background(), func(_ context.Context, d *SectorDraft) error {
		submitted = d
		return nil
	})
	require.NoError(t, err)
	assert.NotNil(t, submitted)
	assert.False(t, e.Open())
	assert.Nil(t, e.Draft())
	assert.ErrorIs(t, e.Submit(context.Background(), func(context.Context, *SectorDraft) error { return nil }), ErrClosed)
}

func TestEditor_FailureKeepsDraft(t *testing.T) {
	d := NewUserDraft()
	d.Automations.Add(5)
	e := NewEditor(d)
	boom := errors.New("Email already registered")

	err := e.Submit(context.Background(), func(context.Context, *UserDraft) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, e.Open())
	assert.Same(t, d, e.Draft())
	assert.Equal(t, []int64{5}, e.Draft().Automations.IDs())
	assert.ErrorIs(t, e.Err(), boom)

	require.NoError(t, e.Submit(context.Background(), func(context.Context, *UserDraft) error { return nil }))
	assert.NoError(t, e.Err())
}

func TestEditor_ResultAfterCancelIsIgnored(t *testing.T) {
	e := NewEditor(NewAutomationDraft())
	err := e.Submit(context.Background(), func(context.Context, *AutomationDraft) error {
		e.Cancel()
		return errors.New("late failure")
	})
	assert.Error(t, err)
	assert.False(t, e.Open())
	assert.Nil(t, e.Draft())
	assert.NoError(t, e.Err(), "a late result must not write to a closed editor")
}

func TestEditor_RejectsConcurrentSubmit(t *testing.T) {
	e := NewEditor(NewSectorDraft())
	var inner error
	_ = e.Submit(context.Background(), func(ctx context.Context, _ *SectorDraft) error {
		inner = e.Submit(ctx, func(context.Context, *SectorDraft) error { return nil })
		return nil
	})
	assert.ErrorIs(t, inner, ErrBusy)
}
