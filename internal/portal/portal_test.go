package portal

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automation-hub/internal/apiclient"
	"automation-hub/internal/config"
	"automation-hub/internal/domain"
	"automation-hub/internal/guard"
	"automation-hub/internal/relation"
	"automation-hub/internal/testutil/fakeapi"
	"automation-hub/internal/tokenstore"
)

type env struct {
	srv     *fakeapi.Server
	tokens  *tokenstore.MemoryStore
	app     *App
	sales   domain.Sector
	finance domain.Sector
	admin   domain.User
	bob     domain.User
	report  domain.Automation
	payroll domain.Automation
	legacy  domain.Automation
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := fakeapi.New(t)
	e := &env{srv: srv, tokens: tokenstore.NewMemoryStore("")}
	e.sales = srv.AddSector("Sales", "")
	e.finance = srv.AddSector("Finance", "")
	e.admin = srv.AddUser("admin@x.com", "secret", "Admin", domain.RoleAdmin, e.sales.ID)
	e.bob = srv.AddUser("a@x.com", "p1", "Bob", domain.RoleUser, e.sales.ID)
	e.report = srv.AddAutomation(domain.AutomationRequest{
		Title: "Sales report", Description: "Weekly pipeline numbers",
		TargetURL: "https://tools.example.com/report", IsActive: true, SectorIDs: []int64{e.sales.ID},
	})
	e.payroll = srv.AddAutomation(domain.AutomationRequest{
		Title: "Payroll", Description: "Monthly run",
		TargetURL: "https://tools.example.com/payroll", IsActive: true, SectorIDs: []int64{e.finance.ID},
	})
	e.legacy = srv.AddAutomation(domain.AutomationRequest{
		Title: "Legacy export", TargetURL: "https://tools.example.com/legacy", IsActive: false,
		SectorIDs: []int64{e.sales.ID},
	})
	e.app = e.newApp(t, 5*time.Second)
	return e
}

func (e *env) newApp(t *testing.T, timeout time.Duration) *App {
	t.Helper()
	return New(Deps{
		Config: &config.Config{
			APIURL:         e.srv.BaseURL(),
			RequestTimeout: timeout,
			MaxRetries:     0,
		},
		Tokens: e.tokens,
	})
}

func (e *env) stored(t *testing.T) string {
	t.Helper()
	tok, err := e.tokens.Load(context.Background())
	require.NoError(t, err)
	return tok
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestLogin_ValidCredentials(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.app.Session.Login(context.Background(), "a@x.com", "p1"))

	st := e.app.Session.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.NotEmpty(t, e.stored(t))
	assert.Equal(t, e.stored(t), st.Token)
	assert.Equal(t, e.bob.UserProfile.ID, st.User.ID)
	assert.Equal(t, "a@x.com", st.User.Email)
	assert.Equal(t, "Bob", st.User.FullName)
	assert.Equal(t, domain.RoleUser, st.User.Role)
	assert.Equal(t, 1, e.srv.Hits(http.MethodGet, "/auth/me"))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e := newEnv(t)

	err := e.app.Session.Login(context.Background(), "a@x.com", "wrong")
	var authErr *domain.AuthenticationError
	require.ErrorAs(t, err, &authErr)

	st := e.app.Session.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, "Incorrect email or password", st.Error)
	assert.Empty(t, e.stored(t))
	assert.Zero(t, e.srv.Hits(http.MethodGet, "/auth/me"))
}

func TestLogin_InactiveAccount(t *testing.T) {
	e := newEnv(t)
	e.srv.SetActive(e.bob.ID, false)

	err := e.app.Session.Login(context.Background(), "a@x.com", "p1")
	require.Error(t, err)
	assert.Equal(t, "User account is inactive", e.app.Session.Snapshot().Error)
}

func TestRestore(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.tokens.Save(context.Background(), e.srv.Token("a@x.com", time.Hour)))

	require.NoError(t, e.app.Start(context.Background()))
	st := e.app.Session.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "a@x.com", st.User.Email)
}

func TestRestore_ExpiredTokenSkipsNetwork(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.tokens.Save(context.Background(), e.srv.Token("a@x.com", -time.Minute)))

	require.NoError(t, e.app.Start(context.Background()))
	assert.False(t, e.app.Session.Snapshot().IsAuthenticated)
	assert.Empty(t, e.stored(t))
	assert.Zero(t, e.srv.Hits(http.MethodGet, "/auth/me"))
}

func TestDashboard_GuardsAndFilters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	view, err := e.app.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, guard.Decision{Outcome: guard.Redirect, Target: guard.LoginPath}, view.Decision)
	assert.Zero(t, e.srv.Hits(http.MethodGet, "/automations"))

	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	view, err = e.app.Dashboard(ctx, "")
	require.NoError(t, err)
	require.Equal(t, guard.Render, view.Decision.Outcome)
	var titles []string
	for _, a := range view.Automations {
		titles = append(titles, a.Title)
	}
	assert.ElementsMatch(t, []string{"Sales report", "Payroll"}, titles, "inactive automations are hidden")

	view, err = e.app.Dashboard(ctx, "PIPELINE")
	require.NoError(t, err)
	require.Len(t, view.Automations, 1)
	assert.Equal(t, e.report.ID, view.Automations[0].ID)
	assert.Equal(t, 1, e.srv.Hits(http.MethodGet, "/automations"), "searching reuses the cached catalog")
}

func TestAdmin_NonAdminIsRedirectedWithoutFetching(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "a@x.com", "p1"))

	view, err := e.app.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, guard.Decision{Outcome: guard.Redirect, Target: guard.DefaultPath}, view.Decision)
	assert.Nil(t, view.Data)
	assert.Zero(t, e.srv.Hits(http.MethodGet, "/automations"))
	assert.Zero(t, e.srv.Hits(http.MethodGet, "/users"))
	assert.Zero(t, e.srv.Hits(http.MethodGet, "/sectors"))
}

func TestAdmin_LoadsAllCatalogs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	view, err := e.app.Admin(ctx)
	require.NoError(t, err)
	require.NotNil(t, view.Data)
	assert.Equal(t, Counts{Automations: 3, Users: 2, Sectors: 2}, view.Data.Counts())
	assert.Equal(t, 1, e.srv.Hits(http.MethodGet, "/users"))
}

func TestAdmin_MutationVisibleOnDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	_, err := e.app.Dashboard(ctx, "")
	require.NoError(t, err)

	require.NoError(t, e.app.Automations.Delete(ctx, e.payroll.ID))

	view, err := e.app.Dashboard(ctx, "")
	require.NoError(t, err)
	for _, a := range view.Automations {
		assert.NotEqual(t, e.payroll.ID, a.ID)
	}
}

func findAutomation(t *testing.T, data *AdminData, id int64) domain.Automation {
	t.Helper()
	for _, a := range data.Automations {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("automation %d not listed", id)
	return domain.Automation{}
}

func findUser(t *testing.T, data *AdminData, id int64) domain.User {
	t.Helper()
	for _, u := range data.Users {
		if u.ID == id {
			return u
		}
	}
	t.Fatalf("user %d not listed", id)
	return domain.User{}
}

func TestSectorMutationRefreshesDependentCatalogs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	view, err := e.app.Admin(ctx)
	require.NoError(t, err)
	payroll := findAutomation(t, view.Data, e.payroll.ID)
	require.Equal(t, []int64{e.finance.ID}, payroll.SectorIDs())

	_, err = e.app.Sectors.Update(ctx, e.sales.ID, domain.SectorRequest{Name: "Field Sales", Slug: "sales"})
	require.NoError(t, err)
	require.NoError(t, e.app.Sectors.Delete(ctx, e.finance.ID))

	view, err = e.app.Admin(ctx)
	require.NoError(t, err)
	assert.Empty(t, findAutomation(t, view.Data, e.payroll.ID).Sectors)
	assert.Equal(t, []domain.SectorRef{{ID: e.sales.ID, Name: "Field Sales"}},
		findAutomation(t, view.Data, e.report.ID).Sectors)
	bob := findUser(t, view.Data, e.bob.ID)
	assert.Equal(t, "Field Sales", bob.SectorName())
}

func TestAutomationMutationRefreshesUserGrants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.srv.Grant(e.bob.ID, e.report.ID, e.payroll.ID)
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	view, err := e.app.Admin(ctx)
	require.NoError(t, err)
	bob := findUser(t, view.Data, e.bob.ID)
	require.Equal(t, []int64{e.report.ID, e.payroll.ID}, bob.AutomationIDs())

	_, err = e.app.Automations.Update(ctx, e.report.ID, domain.AutomationRequest{
		Title: "Pipeline report", TargetURL: e.report.TargetURL, IsActive: true, SectorIDs: []int64{e.sales.ID},
	})
	require.NoError(t, err)
	require.NoError(t, e.app.Automations.Delete(ctx, e.payroll.ID))

	view, err = e.app.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AutomationRef{{ID: e.report.ID, Title: "Pipeline report"}},
		findUser(t, view.Data, e.bob.ID).ExtraAutomations)
}

func TestMutationDoesNotInvalidateSourceCatalogs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	_, err := e.app.Admin(ctx)
	require.NoError(t, err)
	sectorHits := e.srv.Hits(http.MethodGet, "/sectors")
	automationHits := e.srv.Hits(http.MethodGet, "/automations")

	require.NoError(t, e.app.Users.Delete(ctx, e.bob.ID))

	_, err = e.app.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, sectorHits, e.srv.Hits(http.MethodGet, "/sectors"))
	assert.Equal(t, automationHits, e.srv.Hits(http.MethodGet, "/automations"))
}

func TestUnauthorizedResponseLogsOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))
	require.True(t, e.app.Session.Snapshot().IsAuthenticated)

	e.srv.RevokeTokens()

	_, err := e.app.Sectors.List(ctx)
	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))

	st := e.app.Session.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.Token)
	assert.Empty(t, e.stored(t))

	view, err := e.app.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, guard.LoginPath, view.Decision.Target)
}

func TestLogoutDropsCachedCatalogs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))
	_, err := e.app.Admin(ctx)
	require.NoError(t, err)

	e.app.Session.Logout()

	assert.False(t, e.app.Automations.Collection().Loaded())
	assert.False(t, e.app.Users.Collection().Loaded())
	assert.False(t, e.app.Sectors.Collection().Loaded())
}

func TestDeletedGrantIsPreservedInDraft(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.srv.Grant(e.bob.ID, e.payroll.ID)
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	bob, err := e.app.Users.Get(ctx, e.bob.ID)
	require.NoError(t, err)
	editor := relation.NewEditor(relation.EditUser(*bob))
	require.True(t, editor.Draft().Automations.Has(e.payroll.ID))

	require.NoError(t, e.app.Automations.Delete(ctx, e.payroll.ID))

	view, err := e.app.Admin(ctx)
	require.NoError(t, err)
	for _, a := range view.Data.Automations {
		assert.NotEqual(t, e.payroll.ID, a.ID)
	}

	found, missing := relation.Resolve(editor.Draft().Automations, view.Data.Automations,
		func(a domain.Automation) int64 { return a.ID })
	assert.Empty(t, found)
	assert.Equal(t, []int64{e.payroll.ID}, missing)

	in, err := editor.Draft().UpdateInput()
	require.NoError(t, err)
	assert.Equal(t, []int64{e.payroll.ID}, in.AutomationIDs, "dangling ids stay until removed by the user")

	require.NoError(t, editor.Submit(ctx, func(ctx context.Context, d *relation.UserDraft) error {
		in, err := d.UpdateInput()
		if err != nil {
			return err
		}
		_, err = e.app.Users.Update(ctx, d.ID, in)
		return err
	}))
	assert.False(t, editor.Open())
	body := e.srv.LastBody(http.MethodPut, "/users/"+itoa(e.bob.ID))
	assert.NotContains(t, body, "password")
}

func TestLaunch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.app.Launch(ctx, e.report.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))

	target, err := e.app.Launch(ctx, e.report.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://tools.example.com/report", target)

	_, err = e.app.Launch(ctx, e.legacy.ID)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = e.app.Launch(ctx, 999)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestTimeoutIsNotAnAuthorizationFailure(t *testing.T) {
	e := newEnv(t)
	app := e.newApp(t, 100*time.Millisecond)
	release := e.srv.Hold(http.MethodGet, "/auth/me")
	defer release()

	err := app.Session.Login(context.Background(), "a@x.com", "p1")
	var netErr *apiclient.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout)

	st := app.Session.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.NotEmpty(t, e.stored(t), "a timeout keeps the token for the next attempt")
}

func TestRefresherPicksUpRemoteChanges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.app.Session.Login(ctx, "admin@x.com", "secret"))
	_, err := e.app.Dashboard(ctx, "")
	require.NoError(t, err)

	var ticks atomic.Int32
	r, err := e.app.NewRefresher("@every 1h", func() { ticks.Add(1) })
	require.NoError(t, err)

	added := e.srv.AddAutomation(domain.AutomationRequest{
		Title: "New tool", TargetURL: "https://tools.example.com/new", IsActive: true,
	})
	r.Tick()

	cached, ok := e.app.Automations.Collection().Peek()
	require.True(t, ok)
	var seen bool
	for _, a := range cached {
		seen = seen || a.ID == added.ID
	}
	assert.True(t, seen)
	assert.Equal(t, int32(1), ticks.Load())
	assert.Zero(t, e.srv.Hits(http.MethodGet, "/users"), "unloaded catalogs are not refreshed")
}

func TestRefresher_InvalidSpec(t *testing.T) {
	e := newEnv(t)
	_, err := e.app.NewRefresher("not a schedule", nil)
	assert.Error(t, err)
}

func TestRefresher_IdleWithoutSession(t *testing.T) {
	e := newEnv(t)
	r, err := e.app.NewRefresher("@every 1h", nil)
	require.NoError(t, err)
	r.Start()
	r.Tick()
	r.Stop()
	assert.Zero(t, e.srv.TotalHits(http.MethodGet))
}
