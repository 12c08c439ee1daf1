package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"automation-hub/internal/apiclient"
	"automation-hub/internal/domain"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		reportError(os.Stdout, os.Stderr, output, err)
		return 1
	}
	return 0
}

// reportError prints err as a JSON object on stdout in json mode, or as a
// plain line on stderr otherwise.
func reportError(stdout, stderr io.Writer, output string, err error) {
	if output == "json" {
		errObj := map[string]interface{}{
			"error": errorMessage(err),
		}
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			errObj["http_status"] = apiErr.HTTPStatus
			errObj["code"] = apiErr.Code
			if apiErr.RequestID != "" {
				errObj["request_id"] = apiErr.RequestID
			}
		}
		_ = PrintJSON(stdout, errObj)
		return
	}
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", errorMessage(err))
}

// errorMessage prefers the inline text of contained errors.
func errorMessage(err error) string {
	var mutErr *domain.MutationError
	if errors.As(err, &mutErr) {
		return fmt.Sprintf("%s %s: %s", mutErr.Op, mutErr.Resource, mutErr.Message())
	}
	var authErr *domain.AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return err.Error()
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:           "hub",
		Short:         "Automation Hub CLI",
		Long:          "Command-line client for the Automation Hub portal: launch automations and manage the admin catalogs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.resolve(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return rt.close()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rt.host, "host", "", "API base URL (default "+defaultHostHint+")")
	pf.StringVarP(&rt.output, "output", "o", "table", "Output format (table, json)")
	pf.StringVarP(&rt.profileName, "profile", "p", "", "Config profile to use")
	pf.BoolVarP(&rt.quiet, "quiet", "q", false, "Only output resource identifiers")
	pf.StringVar(&rt.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLoginCmd(rt))
	rootCmd.AddCommand(newLogoutCmd(rt))
	rootCmd.AddCommand(newWhoamiCmd(rt))
	rootCmd.AddCommand(newDashboardCmd(rt))
	rootCmd.AddCommand(newOpenCmd(rt))
	rootCmd.AddCommand(newAutomationsCmd(rt))
	rootCmd.AddCommand(newUsersCmd(rt))
	rootCmd.AddCommand(newSectorsCmd(rt))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
