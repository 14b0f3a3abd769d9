package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"acctmove-cli/internal/auth"
	"acctmove-cli/internal/database"
	"acctmove-cli/internal/migrate"
	"acctmove-cli/internal/panel"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a hosting account from a source server to this one",
	Long: `Migrate pulls one account, identified by its domain, from the source
server. Method structure-only re-creates the account here from a
structure-only export; method sync copies home directory data and
databases into an account a prior structure-only run created.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringP("source", "s", "", "source host address")
	migrateCmd.Flags().StringP("domain", "d", "", "domain identifying the account")
	migrateCmd.Flags().StringP("method", "m", "", "migration method: structure-only or sync")
	migrateCmd.Flags().IntP("port", "p", 22, "SSH port on the source host")
	migrateCmd.Flags().Bool("no-cleanup", false, "keep temporary artifacts for inspection")
	migrateCmd.Flags().Bool("keep-definers", false, "keep DEFINER clauses in database dumps")

	migrateCmd.Flags().String("user", "", "SSH username on the source host (default: root)")
	migrateCmd.Flags().StringP("key", "k", "", "path to SSH private key")
	migrateCmd.Flags().BoolP("agent", "a", true, "use SSH agent")
	migrateCmd.Flags().DurationP("timeout", "t", 30*time.Second, "connection timeout")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	req := request{
		source: mustGetStringFlag(cmd, "source"),
		domain: mustGetStringFlag(cmd, "domain"),
		method: mustGetStringFlag(cmd, "method"),
		port:   mustGetIntFlag(cmd, "port"),
	}

	if isInteractive() {
		if err := promptMissing(&req); err != nil {
			return err
		}
	}
	if err := req.validate(); err != nil {
		return err
	}

	cleanup := !mustGetBoolFlag(cmd, "no-cleanup")

	sshUser := mustGetStringFlag(cmd, "user")
	if sshUser == "" {
		sshUser = viper.GetString("ssh.user")
	}

	client, err := auth.Dial(auth.Config{
		Host:     req.source,
		User:     sshUser,
		Port:     strconv.Itoa(req.port),
		KeyPath:  mustGetStringFlag(cmd, "key"),
		UseAgent: mustGetBoolFlag(cmd, "agent"),
		Timeout:  mustGetDurationFlag(cmd, "timeout"),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", migrate.ErrConnectivity, err)
	}
	defer client.Close()

	fmt.Printf("Checking connectivity to %s...\n", req.source)
	if err := client.Probe(); err != nil {
		return fmt.Errorf("%w: %v", migrate.ErrConnectivity, err)
	}

	workDir, err := os.MkdirTemp("", "acctmove-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	if cleanup {
		defer os.RemoveAll(workDir)
	}

	workflow := &migrate.Workflow{
		Source:     client,
		Local:      panel.LocalRunner{},
		Layout:     layoutFromConfig(),
		Domain:     req.domain,
		SourceHost: req.source,
		SSHUser:    sshUser,
		SSHPort:    strconv.Itoa(req.port),
		Cleanup:    cleanup,
		WorkDir:    workDir,
		Out:        os.Stdout,
	}

	switch req.method {
	case MethodStructureOnly:
		err = workflow.RunStructure()
	case MethodSync:
		db, dbErr := sql.Open("mysql", viper.GetString("mysql.dsn"))
		if dbErr != nil {
			return fmt.Errorf("failed to open destination MySQL handle: %w", dbErr)
		}
		defer db.Close()

		workflow.Databases = database.NewMigrator(client, &database.SQLAdmin{DB: db}, database.Options{
			DumpDir:      workDir,
			MySQLPath:    viper.GetString("mysql.client"),
			KeepDefiners: mustGetBoolFlag(cmd, "keep-definers"),
			Out:          os.Stdout,
		})
		err = workflow.RunSync()
	}
	if err != nil {
		return err
	}

	fmt.Println("Migration complete!")
	return nil
}
