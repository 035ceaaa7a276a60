// Command main runs the database seeder for Canopy.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"canopy/internal/bootstrap"
	"canopy/internal/config"
	"canopy/internal/seed"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	opts  = seed.DefaultOptions()
	clean bool
)

var rootCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Populate the database with demo users, content and engagement",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Println("🌱 Database Seeder")
		log.Println("==================")

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to seed a production database")
		}

		ctx := context.Background()
		rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close(ctx) }()

		s := seed.NewSeeder(rt.DB, opts)
		if clean {
			if err := s.ClearAll(ctx); err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
		}

		summary, err := s.Run(ctx)
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		out, err := yaml.Marshal(summary)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		log.Printf("✨ All done! All seeded users have the password: %s", seed.DefaultPassword)
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	f.IntVar(&opts.ProjectsPerUser, "projects", opts.ProjectsPerUser, "Projects per user")
	f.IntVar(&opts.BranchesPerProject, "branches", opts.BranchesPerProject, "Branches per project")
	f.IntVar(&opts.PostsPerBranch, "posts", opts.PostsPerBranch, "Posts per branch")
	f.IntVar(&opts.InteractionsPerUser, "interactions", opts.InteractionsPerUser, "Interaction attempts per user")
	f.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Follow attempts per user")
	f.Float64Var(&opts.PrivateRatio, "private-ratio", opts.PrivateRatio, "Share of entities created private")
	f.IntVar(&opts.MaxDays, "max-days", opts.MaxDays, "Spread timestamps over this many past days")
	f.Int64Var(&opts.RandSeed, "rand-seed", 0, "Deterministic faker seed (0 uses the clock)")
	f.BoolVar(&opts.SkipBcrypt, "skip-bcrypt", false, "Store the plain demo password (faster, dev only)")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Log what would be created without writing")
	f.BoolVar(&clean, "clean", true, "Clean database before seeding")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
