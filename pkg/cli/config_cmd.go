package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"automation-hub/internal/profile"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetProfileCmd())
	cmd.AddCommand(newConfigUseProfileCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := profile.Load(profile.Path())
			if err != nil {
				return err
			}
			if !reveal {
				cfg = maskConfig(cfg)
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), cfg)
			}
			printProfiles(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show sensitive values unmasked")

	return cmd
}

// printProfiles lists the profiles sorted by name, marking the current one
// with "*".
func printProfiles(w io.Writer, cfg *profile.UserConfig) {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p := cfg.Profiles[name]
		active := ""
		if name == cfg.CurrentProfile {
			active = "*"
		}
		rows = append(rows, []string{name, active, p.Host, p.Email, p.Token, p.Output})
	}
	PrintTable(w, []string{"profile", "active", "host", "email", "token", "output"}, rows)
}

// maskConfig returns a copy of the config with tokens masked.
func maskConfig(cfg *profile.UserConfig) *profile.UserConfig {
	masked := &profile.UserConfig{
		CurrentProfile: cfg.CurrentProfile,
		Profiles:       make(map[string]profile.Profile, len(cfg.Profiles)),
	}
	for name, p := range cfg.Profiles {
		p.Token = maskSecret(p.Token)
		masked.Profiles[name] = p
	}
	return masked
}

// maskSecret masks a sensitive string, showing first 4 and last 4 chars.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 10 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func newConfigSetProfileCmd() *cobra.Command {
	var (
		name   string
		host   string
		email  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("default-output") {
				if err := validateOutputFormat(output); err != nil {
					return err
				}
			}

			path := profile.Path()
			err := profile.Update(path, func(cfg *profile.UserConfig) error {
				p := cfg.Profiles[name]
				if cmd.Flags().Changed("api-url") {
					p.Host = host
				}
				if cmd.Flags().Changed("email") {
					p.Email = email
				}
				if cmd.Flags().Changed("default-output") {
					p.Output = output
				}
				cfg.Set(name, p)
				return nil
			})
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    path,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&host, "api-url", "", "API base URL, including /api/v1")
	cmd.Flags().StringVar(&email, "email", "", "Default login email")
	cmd.Flags().StringVar(&output, "default-output", "", "Default output format")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newConfigUseProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			err := profile.Update(profile.Path(), func(cfg *profile.UserConfig) error {
				if _, ok := cfg.Profiles[name]; !ok {
					return fmt.Errorf("profile %q not found", name)
				}
				cfg.CurrentProfile = name
				return nil
			})
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %q\n", name)
			return nil
		},
	}
}
