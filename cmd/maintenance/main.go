package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env in the working directory avoids passing secrets on the command line
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Operational tasks for the reservation backend",
	}
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().String("database-driver", "", "postgres or pgx (overrides DATABASE_DRIVER)")

	rootCmd.AddCommand(
		migrateCmd(),
		seedAdminCmd(),
		reconcileCmd(),
		setOccupancyCmd(),
		clearDataCmd(),
		generateSecretsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
