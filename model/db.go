package model

import (
	"fmt"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the entry point to the persistence layer. Every business rule that
// touches the database lives on it, and every query it runs is scoped to the
// requesting user.
type Store struct {
	db     *gorm.DB
	Config *Config
}

type Config struct {
	Basedir             string
	CookieSecret        string
	MailAPIKey          string
	MailSecret          string
	MailSender          string
	Mode                string
	Port                int
	RegistrationAllowed bool
	Servers             map[string]server
}

type server struct {
	Database   string
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBLogger   string
}

// gormConfigFor selects the GORM log level: an explicit per-server setting
// wins, otherwise development is verbose and everything else is silent.
func gormConfigFor(cfg *Config, svr server) *gorm.Config {
	gormConfig := &gorm.Config{}
	switch svr.DBLogger {
	case "info":
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	case "silent":
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	default:
		if cfg.Mode == "development" {
			gormConfig.Logger = logger.Default.LogMode(logger.Info)
		} else {
			gormConfig.Logger = logger.Default.LogMode(logger.Silent)
		}
	}
	return gormConfig
}

func (s *Store) autoMigrate() error {
	var err error
	if err = s.db.AutoMigrate(&User{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Client{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Project{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&TimeEntry{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Invoice{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&InvoiceItem{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&Document{}); err != nil {
		return err
	}
	if err = s.db.AutoMigrate(&APIToken{}); err != nil {
		return err
	}
	// The numbering scheme relies on this index: a lost race between two
	// concurrent invoice creations must fail loudly, not produce duplicates.
	s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_invoices_number
         ON invoices(invoice_number)`)
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_time_entries_billing
         ON time_entries(project_id, billable, invoiced)`)
	return nil
}

// InitDatabase opens the configured database and migrates the schema.
func InitDatabase(cfg *Config) (*Store, error) {
	var err error

	s := &Store{Config: cfg}
	svr := cfg.Servers[cfg.Mode]
	gormConfig := gormConfigFor(cfg, svr)

	switch svr.Database {
	case "sqlite3":
		filename := filepath.Join("db", svr.DBName)
		s.db, err = gorm.Open(sqlite.Open(filename), gormConfig)
		if err != nil {
			return nil, err
		}
	case "postgresql":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=5432 sslmode=disable TimeZone=UTC",
			svr.DBHost, svr.DBUser, svr.DBPassword, svr.DBName)
		s.db, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown database %q", svr.Database)
	}
	if err = s.autoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenTest opens an isolated in-memory database. Used by the fixtures package.
func OpenTest() (*Store, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, Config: &Config{Mode: "test"}}
	if err := s.autoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}
