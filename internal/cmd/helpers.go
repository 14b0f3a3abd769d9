package cmd

import (
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"acctmove-cli/internal/panel"
)

// mustGetStringFlag gets a string flag value from a cobra command
func mustGetStringFlag(cmd *cobra.Command, name string) string {
	val, _ := cmd.Flags().GetString(name)
	return val
}

// mustGetBoolFlag gets a boolean flag value from a cobra command
func mustGetBoolFlag(cmd *cobra.Command, name string) bool {
	val, _ := cmd.Flags().GetBool(name)
	return val
}

// mustGetIntFlag gets an int flag value from a cobra command
func mustGetIntFlag(cmd *cobra.Command, name string) int {
	val, _ := cmd.Flags().GetInt(name)
	return val
}

// mustGetDurationFlag gets a duration flag value from a cobra command
func mustGetDurationFlag(cmd *cobra.Command, name string) time.Duration {
	val, _ := cmd.Flags().GetDuration(name)
	return val
}

// layoutFromConfig builds the panel layout from configuration,
// falling back to the stock paths.
func layoutFromConfig() panel.Layout {
	layout := panel.DefaultLayout()
	if v := viper.GetString("panel.list_command"); v != "" {
		layout.ListCommand = v
	}
	if v := viper.GetString("panel.userdata_dir"); v != "" {
		layout.UserdataDir = v
	}
	if v := viper.GetString("panel.export_command"); v != "" {
		layout.ExportCommand = v
	}
	if v := viper.GetString("panel.import_command"); v != "" {
		layout.ImportCommand = v
	}
	if v := viper.GetString("panel.home_dir"); v != "" {
		layout.HomeDir = v
	}
	return layout
}

// isInteractive reports whether stdin is a terminal, so missing flags
// can be prompted for instead of rejected.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptMissing asks for any required migration parameter the operator
// left off the command line.
func promptMissing(req *request) error {
	if req.source == "" {
		if err := survey.AskOne(&survey.Input{Message: "Source host:"}, &req.source, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if req.domain == "" {
		if err := survey.AskOne(&survey.Input{Message: "Domain to migrate:"}, &req.domain, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if req.method == "" {
		if err := survey.AskOne(&survey.Select{
			Message: "Migration method:",
			Options: []string{MethodStructureOnly, MethodSync},
		}, &req.method); err != nil {
			return err
		}
	}
	return nil
}
