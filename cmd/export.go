package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chemviz/internal/model"
	"chemviz/internal/report"
)

var (
	exportOutput string
	exportFormat string
)

var exportCommand = &cobra.Command{
	Use:   "export <dataset_id>",
	Short: "Write a dataset's PDF report or Parquet export to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid dataset id %q", args[0])
		}
		if exportFormat != "pdf" && exportFormat != "parquet" {
			return fmt.Errorf("unsupported format %q", exportFormat)
		}

		conf := mustInitConfig()
		db := mustInitDB(conf)
		defer closeDB(db)

		var data []byte
		if exportFormat == "pdf" {
			datasets, release := newDatasetService(context.Background(), conf)
			defer release()
			data, err = datasets.Reports().PDF(context.Background(), id)
		} else {
			data, err = exportParquet(id)
		}
		if err != nil {
			return err
		}

		output := exportOutput
		if output == "" {
			output = fmt.Sprintf("dataset_%d.%s", id, exportFormat)
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return err
		}
		logrus.Infof("wrote %s", output)
		return nil
	},
}

func exportParquet(id int) ([]byte, error) {
	ds, err := model.GetDatasetById(id, true)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := report.WriteParquet(&buf, ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	exportCommand.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default dataset_<id>.<format>)")
	exportCommand.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "Output format: pdf or parquet")
}
