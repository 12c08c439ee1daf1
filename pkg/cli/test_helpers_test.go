package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"automation-hub/internal/domain"
	"automation-hub/internal/testutil/fakeapi"
)

// isolateHome points HOME at a temp dir and clears every HUB_* variable
// so no real config or token is picked up.
func isolateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, key := range []string{
		"HUB_CONFIG", "HUB_API_URL", "HUB_PROFILE", "HUB_OUTPUT", "HUB_TOKEN",
		"HUB_TOKEN_STORE", "HUB_STATE_DB", "HUB_REFRESH_SCHEDULE", "HUB_CACHE_TTL",
		"HUB_REQUEST_TIMEOUT", "HUB_MAX_RETRIES", "HUB_RATE_LIMIT_RPS", "HUB_RATE_LIMIT_BURST",
		"ENV",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

// execute runs the root command with args and returns what it wrote.
func execute(stdin string, args ...string) (stdout, stderr string, err error) {
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// cliEnv is a fake API seeded with two sectors, an admin, a regular user
// and three automations, one of them inactive.
type cliEnv struct {
	srv     *fakeapi.Server
	home    string
	sales   domain.Sector
	finance domain.Sector
	admin   domain.User
	bob     domain.User
	report  domain.Automation
	payroll domain.Automation
	legacy  domain.Automation
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	e := &cliEnv{home: isolateHome(t), srv: fakeapi.New(t)}
	e.sales = e.srv.AddSector("Sales", "")
	e.finance = e.srv.AddSector("Finance", "")
	e.admin = e.srv.AddUser("admin@x.com", "secret", "Admin", domain.RoleAdmin, e.sales.ID)
	e.bob = e.srv.AddUser("a@x.com", "p1", "Bob", domain.RoleUser, e.sales.ID)
	e.report = e.srv.AddAutomation(domain.AutomationRequest{
		Title: "Sales report", Description: "Weekly pipeline numbers",
		TargetURL: "https://tools.example.com/report", IsActive: true, SectorIDs: []int64{e.sales.ID},
	})
	e.payroll = e.srv.AddAutomation(domain.AutomationRequest{
		Title: "Payroll", Description: "Monthly run",
		TargetURL: "https://tools.example.com/payroll", IsActive: true, SectorIDs: []int64{e.finance.ID},
	})
	e.legacy = e.srv.AddAutomation(domain.AutomationRequest{
		Title: "Legacy export", TargetURL: "https://tools.example.com/legacy", IsActive: false,
		SectorIDs: []int64{e.sales.ID},
	})
	return e
}

// run executes a command against the fake server.
func (e *cliEnv) run(stdin string, args ...string) (string, string, error) {
	return execute(stdin, append([]string{"--host", e.srv.BaseURL()}, args...)...)
}

func (e *cliEnv) login(t *testing.T, email, password string) {
	t.Helper()
	_, _, err := e.run(password+"\n", "login", "--email", email, "--password-stdin")
	require.NoError(t, err)
}

func (e *cliEnv) expiredToken(email string) string {
	return e.srv.Token(email, -time.Minute)
}
