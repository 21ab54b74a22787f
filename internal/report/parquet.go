package report

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"chemviz/internal/model"
)

// RecordRow is one equipment record in Parquet format.
type RecordRow struct {
	EquipmentName string  `parquet:"equipment_name,zstd"`
	EquipmentType string  `parquet:"equipment_type,zstd"`
	Flowrate      float64 `parquet:"flowrate"`
	Pressure      float64 `parquet:"pressure"`
	Temperature   float64 `parquet:"temperature"`
}

// WriteParquet writes the records of ds to w as a single Parquet file.
func WriteParquet(w io.Writer, ds *model.Dataset) error {
	rows := make([]RecordRow, len(ds.Records))
	for i, r := range ds.Records {
		rows[i] = RecordRow{
			EquipmentName: r.EquipmentName,
			EquipmentType: r.EquipmentType,
			Flowrate:      r.Flowrate,
			Pressure:      r.Pressure,
			Temperature:   r.Temperature,
		}
	}

	writer := parquet.NewGenericWriter[RecordRow](w,
		parquet.Compression(&parquet.Zstd),
		parquet.KeyValueMetadata("filename", ds.Filename),
	)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}
