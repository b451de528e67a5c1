package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bantrap/internal/config"
	"bantrap/internal/logger"
)

// MySQLDSN builds the go-sql-driver DSN for the configured database.
func MySQLDSN(db config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		db.Username,
		db.Password,
		db.Host,
		db.Port,
		db.DBName,
		db.Charset,
	)
}

// Initialize opens the MySQL connection described by cfg.Storage.Database.
func Initialize(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Storage.Database
	logger.Infof("Connecting to database: %s:%d/%s", dbCfg.Host, dbCfg.Port, dbCfg.DBName)

	db, err := gorm.Open(mysql.Open(MySQLDSN(dbCfg)), &gorm.Config{
		Logger: NewCustomGormLogger(cfg.Logger.Level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Infof("Database connection established successfully")
	return db, nil
}
