package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flexbase/flexbase/internal/config"
	"github.com/flexbase/flexbase/internal/database"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	userCount int
	postCount int
	randSeed  int64
	force     bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed or clean the FlexBase database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		return logger.Initialize(cfg.LogLevel, cfg.LogFile)
	},
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Seed the development database with realistic data",
	Long: `Create users, collections, follows, posts, likes and comments.
Every seeded account uses the password "` + seed.DevPassword + `".

Examples:
  seed dev
  seed dev --users 50 --posts 400 --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
			if err := db.EnsureIndexes(ctx); err != nil {
				return err
			}
			store := repository.NewMongoStore(db, cfg.MongoTransactions)
			res, err := seed.NewSeeder(store, randSeed).SeedDev(ctx, seed.Options{
				Users: userCount,
				Posts: postCount,
				Seed:  randSeed,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d users, %d posts, %d collections, %d follows, %d likes, %d comments\n",
				res.Users, res.Posts, res.Collections, res.Follows, res.Likes, res.Comments)
			return nil
		})
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the FlexBase collections (use with caution)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
			if cfg.IsProduction() && !force {
				return fmt.Errorf("refusing to clean a production database without --force")
			}
			if err := db.Drop(ctx); err != nil {
				return err
			}
			logger.Log.Info("Dropped collections", zap.String("database", cfg.MongoDatabase))
			fmt.Println("Seed data cleaned")
			return nil
		})
	},
}

func withDatabase(parent context.Context, fn func(context.Context, *config.Config, *database.DB) error) error {
	ctx, cancel := context.WithTimeout(parent, 10*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(context.Background()) }()

	return fn(ctx, cfg, db)
}

func init() {
	devCmd.Flags().IntVar(&userCount, "users", 40, "Number of users to create")
	devCmd.Flags().IntVar(&postCount, "posts", 300, "Number of posts to create")
	devCmd.Flags().Int64Var(&randSeed, "seed", 0, "Random seed for reproducible data (0 = random)")
	cleanCmd.Flags().BoolVar(&force, "force", false, "Allow cleaning when APP_ENV=production")

	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(cleanCmd)
}

func main() {
	defer func() { _ = logger.Close() }()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
