package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZeroArgCommandsRejectUnexpectedPositionalArgs(t *testing.T) {
	isolateHome(t)

	_, _, err := execute("", "config", "set-profile", "--name", "default", "--api-url", "http://127.0.0.1:65535")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
	}{
		{name: "version", args: []string{"version", "extra"}},
		{name: "config show", args: []string{"config", "show", "extra"}},
		{name: "config set-profile", args: []string{"config", "set-profile", "--name", "p", "extra"}},
		{name: "login", args: []string{"login", "extra"}},
		{name: "logout", args: []string{"logout", "extra"}},
		{name: "whoami", args: []string{"whoami", "extra"}},
		{name: "dashboard", args: []string{"dashboard", "extra"}},
		{name: "automations list", args: []string{"automations", "list", "extra"}},
		{name: "users create", args: []string{"users", "create", "extra"}},
		{name: "sectors list json", args: []string{"sectors", "list", "--output", "json", "extra"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute("", tc.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), "unknown command \"extra\"")
		})
	}
}

func TestIDArgumentsAreValidated(t *testing.T) {
	isolateHome(t)

	for _, args := range [][]string{
		{"open", "abc"},
		{"automations", "get", "0"},
		{"users", "delete", "-3"},
	} {
		_, _, err := execute("", args...)
		require.Error(t, err, "%v", args)
	}
}
