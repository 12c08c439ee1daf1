package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"automation-hub/internal/domain"
	"automation-hub/internal/guard"
	"automation-hub/internal/profile"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token in the active profile",
		Example: `  # Prompt for the password
  hub login --email ana@example.com

  # Read the password from stdin
  echo "$HUB_PASSWORD" | hub login --email ana@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = rt.profile.Email
			}
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			app, err := rt.portal(cmd)
			if err != nil {
				return err
			}
			if err := app.Session.Login(commandContext(cmd), email, password); err != nil {
				return err
			}
			if err := rememberEmail(rt.active, email); err != nil {
				app.Logger.Warn("could not save email to profile", "error", err)
			}

			user := app.Session.Snapshot().User
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), user)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s> (%s)\n", user.FullName, user.Email, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (defaults to the profile email)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

// readPassword reads a single line from stdin, prompting without echo when
// stdin is a terminal.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func rememberEmail(name, email string) error {
	return profile.Update(profile.Path(), func(cfg *profile.UserConfig) error {
		p := cfg.Profiles[name]
		p.Email = email
		cfg.Set(name, p)
		return nil
	})
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.portal(cmd)
			if err != nil {
				return err
			}
			app.Session.Logout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{"status": "ok"})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.require(cmd, guard.Authenticated)
			if err != nil {
				return err
			}
			user := app.Session.Snapshot().User
			return emit(cmd, user, func(w io.Writer) {
				PrintDetail(w, profileFields(user))
			})
		},
	}
}

func profileFields(u *domain.UserProfile) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      string(u.Role),
		"admin":     u.IsAdmin,
		"active":    u.IsActive,
		"sector_id": u.SectorID,
	}
}
