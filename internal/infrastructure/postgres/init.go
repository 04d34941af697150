package postgres

import (
	"log"

	"github.com/LavaJover/shvark-lottery-service/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func MustInitDB(cfg *config.LotteryConfig) *gorm.DB {
	dsn := cfg.LotteryDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v\n", err.Error())
	}
	sqlDB.SetMaxOpenConns(cfg.LotteryDB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.LotteryDB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.LotteryDB.ConnMaxLifetime)

	return db
}
