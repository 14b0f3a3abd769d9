package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "acctmove",
		Short: "acctmove - migrate hosting accounts between servers over SSH",
		Long: `acctmove is run on the destination server and pulls a hosting account
(metadata, files, databases) from a source server over SSH. It supports a
structure-only migration that re-creates the account, and a sync migration
that copies file and database data into an already-created account.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.acctmove.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Load environment variables from a .env file in the current directory.
	// A missing .env is fine - variables can still come from the shell.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".acctmove")
	}

	viper.SetDefault("ssh.user", "root")
	viper.SetDefault("mysql.dsn", "root@unix(/var/run/mysqld/mysqld.sock)/")
	viper.SetDefault("mysql.client", "mysql")
	viper.SetDefault("panel.list_command", "/usr/local/cpanel/scripts/list_accounts")
	viper.SetDefault("panel.userdata_dir", "/var/cpanel/userdata")
	viper.SetDefault("panel.export_command", "/usr/local/cpanel/scripts/pkgacct")
	viper.SetDefault("panel.import_command", "/usr/local/cpanel/scripts/restorepkg")
	viper.SetDefault("panel.home_dir", "/home")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
