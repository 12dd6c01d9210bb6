package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile     string
	skipMigrate bool
)

var rootCmd = &cobra.Command{
	Use:   "freelancehub",
	Short: "FreelanceHub API server",
	Long: `FreelanceHub is a freelance marketplace API: clients post projects,
freelancers bid on them and clients award the work.

Configuration is read from the environment; a .env file is loaded first when present.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run schema migrations on startup")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
