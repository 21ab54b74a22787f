package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chemviz/internal/model"
)

var insertTestData bool

var updateDBCommand = &cobra.Command{
	Use:   "updatedb",
	Short: "Update database tables",
	Run: func(cmd *cobra.Command, args []string) {
		conf := mustInitConfig()

		db, err := model.InitDB(conf.DB)
		if err != nil {
			logrus.Fatal("failed to init database", err)
		}
		defer closeDB(db)

		err = model.AutoMigrate(db)
		if err != nil {
			logrus.Fatal("failed to auto migrate database", err)
		} else {
			logrus.Infof("Database tables update successfully")
		}

		if insertTestData {
			ctx := context.Background()
			datasets, release := newDatasetService(ctx, conf)
			defer release()

			ds, err := datasets.SeedDemo(ctx)
			if err != nil {
				logrus.Fatal("failed to insert test data", err)
			}
			logrus.Infof("demo user and sample dataset %d inserted", ds.Id)
		}
	},
}

func init() {
	updateDBCommand.Flags().BoolVarP(&insertTestData, "insert-test-data", "t", false, "Insert a demo user and the bundled sample dataset")
}
