package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sidequest-rpg/sidequest_api/config"
	"github.com/sidequest-rpg/sidequest_api/progression"
	"github.com/sidequest-rpg/sidequest_api/seed/seeders"
	"github.com/sidequest-rpg/sidequest_api/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	dbPath     string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Database seeding and local tooling for the Sidequest API",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Info("No .env file found, using system environment variables")
		}
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Seed demo players and their quests",
	RunE: func(cmd *cobra.Command, args []string) error {
		seeder, err := newSeeder()
		if err != nil {
			return err
		}
		return seeder.SeedAll()
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Seed demo players only",
	RunE: func(cmd *cobra.Command, args []string) error {
		seeder, err := newSeeder()
		if err != nil {
			return err
		}
		return seeder.SeedProfilesOnly()
	},
}

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "Give every demo player a day of quests from the offline pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		seeder, err := newSeeder()
		if err != nil {
			return err
		}
		return seeder.SeedQuestsOnly()
	},
}

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print the level table",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "LEVEL\tXP TO ADVANCE\tCUMULATIVE XP\t")
		for _, step := range progression.Table() {
			fmt.Fprintf(w, "%d\t%d\t%d\t\n", step.Level, step.XPToAdvance, step.CumulativeXP)
		}
		return w.Flush()
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id> [email]",
	Short: "Issue a development access token signed with JWT_SECRET",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg services.JWTConfig
		if err := env.Parse(&cfg); err != nil {
			return err
		}

		email := ""
		if len(args) == 2 {
			email = args[1]
		}
		token, err := services.NewJWTService(cfg).IssueToken(args[0], email)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
		return nil
	},
}

func newSeeder() (*seeders.MainSeeder, error) {
	db, err := openDatabase()
	if err != nil {
		return nil, err
	}
	game, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return seeders.NewMainSeeder(db, game), nil
}

func openDatabase() (*gorm.DB, error) {
	cfg, err := services.LoadDatabaseConfig()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Driver = "sqlite"
		cfg.SQLitePath = dbPath
	}

	db, err := services.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := services.Migrate(db); err != nil {
		return nil, err
	}

	log.WithField("driver", cfg.Driver).Info("Connected to database")
	return db, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides the DB_* environment)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("GAME_CONFIG_PATH"), "Game config TOML (defaults to the embedded one)")

	rootCmd.AddCommand(allCmd, profilesCmd, questsCmd, levelsCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("Seeding failed")
		os.Exit(1)
	}
}
