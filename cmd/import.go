package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chemviz/internal/model"
)

var importUser string

var importCommand = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Ingest a CSV file the same way an upload does",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !strings.EqualFold(filepath.Ext(path), ".csv") {
			return fmt.Errorf("%s: file must be a CSV", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		conf := mustInitConfig()
		db := mustInitDB(conf)
		defer closeDB(db)

		var user *model.User
		if importUser != "" {
			user, err = model.GetUserByUsername(importUser)
			if err != nil {
				return fmt.Errorf("user %s: %w", importUser, err)
			}
		}

		ctx := context.Background()
		datasets, release := newDatasetService(ctx, conf)
		defer release()

		ds, err := datasets.Ingest(ctx, filepath.Base(path), data, user)
		if err != nil {
			return err
		}
		logrus.Infof("imported %s as dataset %d (%d records)", path, ds.Id, ds.TotalCount)
		fmt.Println(ds.Id)
		return nil
	},
}

func init() {
	importCommand.Flags().StringVarP(&importUser, "user", "u", "", "Attribute the dataset to this username")
}
