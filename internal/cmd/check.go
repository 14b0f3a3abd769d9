package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"acctmove-cli/internal/auth"
	"acctmove-cli/internal/migrate"
	"acctmove-cli/internal/panel"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test connectivity and panel utilities before migrating",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("source", "s", "", "source host address")
	checkCmd.Flags().IntP("port", "p", 22, "SSH port on the source host")
	checkCmd.Flags().StringP("domain", "d", "", "optionally resolve this domain on both hosts")
	checkCmd.Flags().String("user", "", "SSH username on the source host (default: root)")
	checkCmd.Flags().StringP("key", "k", "", "path to SSH private key")
	checkCmd.Flags().BoolP("agent", "a", true, "use SSH agent")
	checkCmd.Flags().DurationP("timeout", "t", 10*time.Second, "connection timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	source := mustGetStringFlag(cmd, "source")
	if source == "" {
		return fmt.Errorf("%w: --source is required", migrate.ErrValidation)
	}

	sshUser := mustGetStringFlag(cmd, "user")
	if sshUser == "" {
		sshUser = viper.GetString("ssh.user")
	}
	layout := layoutFromConfig()

	fmt.Printf("Connecting to %s...\n", source)
	client, err := auth.Dial(auth.Config{
		Host:     source,
		User:     sshUser,
		Port:     strconv.Itoa(mustGetIntFlag(cmd, "port")),
		KeyPath:  mustGetStringFlag(cmd, "key"),
		UseAgent: mustGetBoolFlag(cmd, "agent"),
		Timeout:  mustGetDurationFlag(cmd, "timeout"),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", migrate.ErrConnectivity, err)
	}
	defer client.Close()

	if err := client.Probe(); err != nil {
		return fmt.Errorf("%w: %v", migrate.ErrConnectivity, err)
	}
	fmt.Println("✓ SSH connection successful")

	if _, err := client.Run("test", "-x", layout.ExportCommand); err != nil {
		fmt.Printf("✗ Source export utility missing: %s\n", layout.ExportCommand)
	} else {
		fmt.Printf("✓ Source export utility: %s\n", layout.ExportCommand)
	}

	if _, err := os.Stat(layout.ImportCommand); err != nil {
		fmt.Printf("✗ Local import utility missing: %s\n", layout.ImportCommand)
	} else {
		fmt.Printf("✓ Local import utility: %s\n", layout.ImportCommand)
	}

	workflow := &migrate.Workflow{Local: panel.LocalRunner{}, Out: os.Stdout}
	if address, err := workflow.PrimaryAddress(); err != nil {
		fmt.Printf("✗ Could not determine primary address: %v\n", err)
	} else {
		fmt.Printf("✓ Destination primary address: %s\n", address)
	}

	if domain := mustGetStringFlag(cmd, "domain"); domain != "" {
		if user, err := panel.NewResolver(client, layout).Username(domain); err != nil {
			fmt.Printf("✗ %s not found on source: %v\n", domain, err)
		} else {
			fmt.Printf("✓ %s on source resolves to account %s\n", domain, user)
		}

		if user, err := panel.NewResolver(panel.LocalRunner{}, layout).Username(domain); err != nil {
			fmt.Printf("  %s not present on this host yet (expected before a structure run)\n", domain)
		} else {
			fmt.Printf("✓ %s on this host resolves to account %s\n", domain, user)
		}
	}

	return nil
}
