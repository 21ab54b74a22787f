package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chemviz/internal/archive"
	"chemviz/internal/cache"
	"chemviz/internal/config"
	"chemviz/internal/dataset"
	"chemviz/internal/event"
	"chemviz/internal/model"
	"chemviz/internal/report"
)

func mustInitConfig() *config.Config {
	conf, err := config.InitConfig(configFile)
	if err != nil {
		logrus.Fatal("initConfig error, ", err.Error())
	}
	return conf
}

func mustInitDB(conf *config.Config) *gorm.DB {
	db, err := model.InitDB(conf.DB)
	if err != nil {
		logrus.Fatal("failed to init database, ", err)
	}
	if conf.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logrus.Fatal("failed to auto migrate database, ", err)
		}
	}
	return db
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}

// newDatasetService wires the optional archive, event and cache backends.
// The returned func releases them.
func newDatasetService(ctx context.Context, conf *config.Config) (*dataset.Service, func()) {
	arch, err := archive.New(ctx, conf.S3)
	if err != nil {
		logrus.Fatal("failed to init archive, ", err)
	}
	publisher, err := event.NewPublisher(conf.NSQ)
	if err != nil {
		logrus.Fatal("failed to init event publisher, ", err)
	}
	reportCache, err := cache.New(conf.Redis)
	if err != nil {
		logrus.Fatal("failed to init report cache, ", err)
	}

	reports := report.NewService(reportCache, time.Duration(conf.Redis.TTL)*time.Second)
	svc := dataset.NewService(conf.MaxDatasetHistory, arch, publisher, reports)
	return svc, func() {
		publisher.Stop()
		reportCache.Close()
	}
}
