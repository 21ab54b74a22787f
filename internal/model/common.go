package model

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chemviz/internal/config"
)

var DB *gorm.DB

func InitDB(dbConfig config.DBConfig) (*gorm.DB, error) {
	isSqlite := dbConfig.Driver == config.DriverSqlite || dbConfig.Driver == ""

	var dialector gorm.Dialector
	switch dbConfig.Driver {
	case config.DriverMysql:
		dialector = mysql.Open(dbConfig.DSN)
	case config.DriverPostgres:
		dialector = postgres.Open(dbConfig.DSN)
	case config.DriverSqlite, "":
		dialector = sqlite.Open(dbConfig.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", dbConfig.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt: !isSqlite,
		Logger:      logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	if isSqlite {
		// sqlite has a single writer and in-memory databases are per connection
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Second * time.Duration(dbConfig.MaxLifetime))

	DB = db

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Dataset{}, &Record{})
}
