package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chirpsocial/backend/internal/auth"
	"github.com/chirpsocial/backend/internal/config"
	"github.com/chirpsocial/backend/internal/database"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/reconcile"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/seed"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chirpctl",
	Short: "Chirp operations CLI - migrations, seed data, counter repair and dev tokens",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		return logger.Initialize(level, "")
	},
	SilenceUsage: true,
}

// connect opens the database for commands that need it
func connect() error {
	return database.Initialize(cfg.Database, verbose)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		defer database.Close()
		return database.Migrate(database.DB)
	},
}

var (
	seedProfile string
	seedClean   bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, tweets, follows, likes and messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(database.DB); err != nil {
			return err
		}

		seeder := seed.NewSeeder(database.DB)
		if seedClean {
			return seeder.Clean(cmd.Context())
		}

		opts := seed.DevOptions()
		switch seedProfile {
		case "dev":
		case "test":
			opts = seed.TestOptions()
		default:
			return fmt.Errorf("unknown profile %q (want dev or test)", seedProfile)
		}
		sum, err := seeder.Seed(cmd.Context(), opts)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d users, %d tweets, %d follows, %d likes, %d messages\n",
			sum.Users, sum.Tweets, sum.Follows, sum.Likes, sum.Messages)
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute every cached counter from the relation tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		defer database.Close()

		report, err := reconcile.Run(cmd.Context(), database.DB)
		if err != nil {
			return err
		}
		for counter, rows := range report {
			if rows > 0 {
				fmt.Printf("%-40s %d rows repaired\n", counter, rows)
			}
		}
		fmt.Printf("Total: %d rows repaired\n", report.Total())
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Mint a development JWT for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		defer database.Close()

		user, err := repository.NewUserRepository(database.DB).GetUserByUsername(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("user %q: %w", args[0], err)
		}

		svc := auth.NewService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
		token, expires, err := svc.IssueToken(user.ID, user.Username)
		if err != nil {
			return err
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "user_id=%s expires=%s\n", user.ID, expires.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SQL and debug output")
	seedCmd.Flags().StringVar(&seedProfile, "profile", "dev", "Data set size: dev or test")
	seedCmd.Flags().BoolVar(&seedClean, "clean", false, "Remove all data instead of seeding (use with caution)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
