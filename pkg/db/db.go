package db

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
)

const (
	TypeFile     = "file"
	TypeMemory   = "memory"
	TypePostgres = "postgres"

	DefaultDbPath = "~/.costmeter/costmeter.db"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

func GetInstance(dialector gorm.Dialector) *DB {
	var logger = common.GetLogger()
	once.Do(func() {
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

		instance = &DB{Conn: conn}

		err = instance.Conn.AutoMigrate(
			&models.Device{},
			&models.Event{},
			&models.PricingOverride{},
			&models.AlertConfig{},
			&models.Alert{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}

		logger.Info("Database migration completed")

		if dialector.Name() != "sqlite" {
			return
		}

		if err := instance.Conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			log.Fatal("Failed to enable sqlite foreign key support", err)
		}

		if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			log.Fatal("Failed to set sqlite journal mode", err)
		}
	})
	return instance
}

// GetInstanceByType picks the dialector from a COSTMETER_DB_TYPE value.
func GetInstanceByType(dbType string) *DB {
	switch dbType {
	case TypeFile, "":
		return GetInstance(UseSqliteDialector())
	case TypeMemory:
		return GetInstance(UseMemorySqliteDialector())
	case TypePostgres:
		return GetInstance(UsePostgresDialector())
	default:
		log.Fatal("Unknown " + common.EnvKeyDBType + ": " + dbType)
	}
	return nil
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyDbPath); !found || dbPath == "" {
		dbPath = DefaultDbPath
	}
	dbPath = common.ExpandHome(dbPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		log.Fatalf("Error find/create database directory: %v", err)
	}
	return sqlite.Open(dbPath + "?_foreign_keys=1")
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared&_foreign_keys=1")
}

func UsePostgresDialector() gorm.Dialector {
	dsn, found := os.LookupEnv(common.EnvKeyPostgresDSN)
	if !found || dsn == "" {
		log.Fatal(common.EnvKeyPostgresDSN + " must be set when using the postgres database type")
	}
	return postgres.Open(dsn)
}
