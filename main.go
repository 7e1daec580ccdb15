package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/lancerdesk/crm/controller"
	"github.com/lancerdesk/crm/model"
)

var configFile string

// loadConfig reads the TOML config and applies environment overrides. A .env
// file, if present, is loaded first so container setups can keep secrets out
// of the config file.
func loadConfig() (*model.Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", configFile, err)
	}
	cfg := &model.Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", configFile, err)
	}

	if v := os.Getenv("CRM_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("CRM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CRM_PORT must be numeric: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("CRM_COOKIE_SECRET"); v != "" {
		cfg.CookieSecret = v
	}
	if v := os.Getenv("CRM_MAIL_API_KEY"); v != "" {
		cfg.MailAPIKey = v
	}
	if v := os.Getenv("CRM_MAIL_SECRET"); v != "" {
		cfg.MailSecret = v
	}

	if cfg.Mode == "" {
		cfg.Mode = "development"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "crm",
	Short: "Backend for freelance client, time and invoice management",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := model.InitDatabase(cfg)
		if err != nil {
			return err
		}
		return controller.NewController(store)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := migrate.New("file://"+migrationsDir(), migrateDSN(cfg))
		if err != nil {
			return fmt.Errorf("cannot init migrations: %w", err)
		}
		defer m.Close()
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("cannot apply migrations: %w", err)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo data for a fresh installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := model.InitDatabase(cfg)
		if err != nil {
			return err
		}
		return store.SeedDemoData()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.toml", "path to the config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
