package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/terraconstructs/hrconsole/cmd/iam"
	"github.com/terraconstructs/hrconsole/cmd/users"
	"github.com/terraconstructs/hrconsole/internal/config"
)

var (
	cfg        *config.Config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "hrapi",
	Short: "HR console API server",
	Long: `hrapi serves the HR console: sign-in and sessions, role administration
and the department, job, employee and job-history records.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file")
	flags.String("db-url", "", "Database connection URL (env: HRAPI_DATABASE_URL)")
	flags.String("server-addr", "", "Server bind address (env: HRAPI_SERVER_ADDR)")
	flags.String("server-url", "", "Public base URL (env: HRAPI_SERVER_URL)")
	flags.Bool("debug", false, "Enable debug logging (env: HRAPI_DEBUG)")

	for key, flag := range map[string]string{
		"database_url": "db-url",
		"server_addr":  "server-addr",
		"server_url":   "server-url",
		"debug":        "debug",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(iam.IamCmd)
	rootCmd.AddCommand(users.UsersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
