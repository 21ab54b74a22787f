package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"chemviz/internal/ingest"
)

const recordBatchSize = 500

type Dataset struct {
	Id                    int            `json:"id" gorm:"primarykey"`
	UploadedById          *int           `json:"uploaded_by_id" gorm:"index"`
	UploadedBy            *User          `json:"uploaded_by" gorm:"foreignKey:UploadedById;constraint:OnDelete:SET NULL"`
	UploadedAt            time.Time      `json:"uploaded_at" gorm:"index;autoCreateTime"`
	Filename              string         `json:"filename" gorm:"size:255;not null"`
	TotalCount            int            `json:"total_count"`
	AvgFlowrate           float64        `json:"avg_flowrate"`
	AvgPressure           float64        `json:"avg_pressure"`
	AvgTemperature        float64        `json:"avg_temperature"`
	EquipmentDistribution datatypes.JSON `json:"equipment_distribution"`
	CsvData               string         `json:"-"`
	Records               []Record       `json:"records" gorm:"foreignKey:DatasetId;constraint:OnDelete:CASCADE"`
}

type Record struct {
	Id            int     `json:"id" gorm:"primarykey"`
	DatasetId     int     `json:"dataset_id" gorm:"index;not null"`
	EquipmentName string  `json:"equipment_name" gorm:"size:255;not null"`
	EquipmentType string  `json:"equipment_type" gorm:"size:100;not null"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

// NewDataset builds an unsaved dataset and its records from a parsed upload.
func NewDataset(filename string, res *ingest.Result, uploadedBy *User) (*Dataset, error) {
	dist, err := json.Marshal(res.Summary.Distribution)
	if err != nil {
		return nil, fmt.Errorf("marshal distribution: %w", err)
	}

	ds := &Dataset{
		Filename:              filename,
		TotalCount:            res.Summary.TotalCount,
		AvgFlowrate:           res.Summary.AvgFlowrate,
		AvgPressure:           res.Summary.AvgPressure,
		AvgTemperature:        res.Summary.AvgTemperature,
		EquipmentDistribution: datatypes.JSON(dist),
		CsvData:               string(res.Raw),
		Records:               make([]Record, 0, len(res.Rows)),
	}
	if uploadedBy != nil {
		ds.UploadedById = &uploadedBy.Id
		ds.UploadedBy = uploadedBy
	}
	for _, row := range res.Rows {
		ds.Records = append(ds.Records, Record{
			EquipmentName: row.Name,
			EquipmentType: row.Type,
			Flowrate:      row.Flowrate,
			Pressure:      row.Pressure,
			Temperature:   row.Temperature,
		})
	}
	return ds, nil
}

func (d *Dataset) Distribution() (map[string]int, error) {
	dist := make(map[string]int)
	if len(d.EquipmentDistribution) == 0 {
		return dist, nil
	}
	if err := json.Unmarshal(d.EquipmentDistribution, &dist); err != nil {
		return nil, fmt.Errorf("unmarshal distribution: %w", err)
	}
	return dist, nil
}

// Rows converts the loaded records back into ingestion rows.
func (d *Dataset) Rows() []ingest.Row {
	rows := make([]ingest.Row, len(d.Records))
	for i, r := range d.Records {
		rows[i] = ingest.Row{
			Name:        r.EquipmentName,
			Type:        r.EquipmentType,
			Flowrate:    r.Flowrate,
			Pressure:    r.Pressure,
			Temperature: r.Temperature,
		}
	}
	return rows
}

// CreateDataset stores ds with all its records and applies the retention
// window in a single transaction. It returns the ids of evicted datasets.
func CreateDataset(ds *Dataset, maxHistory int) ([]int, error) {
	var evicted []int
	err := DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Records", "UploadedBy").Create(ds).Error; err != nil {
			return fmt.Errorf("create dataset: %w", err)
		}

		for i := range ds.Records {
			ds.Records[i].DatasetId = ds.Id
		}
		if len(ds.Records) > 0 {
			if err := tx.CreateInBatches(ds.Records, recordBatchSize).Error; err != nil {
				return fmt.Errorf("create records: %w", err)
			}
		}

		var err error
		evicted, err = trimHistory(tx, maxHistory)
		return err
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

// TrimDatasetHistory deletes every dataset beyond the maxHistory most recent
// ones. Running it again without new uploads is a no-op.
func TrimDatasetHistory(maxHistory int) ([]int, error) {
	var evicted []int
	err := DB.Transaction(func(tx *gorm.DB) error {
		var err error
		evicted, err = trimHistory(tx, maxHistory)
		return err
	})
	return evicted, err
}

func trimHistory(tx *gorm.DB, maxHistory int) ([]int, error) {
	if maxHistory <= 0 {
		return nil, fmt.Errorf("invalid history size %d", maxHistory)
	}

	var ids []int
	if err := tx.Model(&Dataset{}).Order(newestFirst).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list dataset ids: %w", err)
	}
	if len(ids) <= maxHistory {
		return nil, nil
	}

	evicted := ids[maxHistory:]
	if err := deleteDatasets(tx, evicted); err != nil {
		return nil, err
	}
	return evicted, nil
}

func deleteDatasets(tx *gorm.DB, ids []int) error {
	if err := tx.Where("dataset_id IN ?", ids).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&Dataset{}).Error; err != nil {
		return fmt.Errorf("delete datasets: %w", err)
	}
	return nil
}

const newestFirst = "uploaded_at desc, id desc"

// GetDatasetById returns gorm.ErrRecordNotFound when the dataset does not exist.
func GetDatasetById(id int, withRecords bool) (*Dataset, error) {
	var ds Dataset
	q := DB.Preload("UploadedBy")
	if withRecords {
		q = q.Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		})
	}
	if err := q.First(&ds, id).Error; err != nil {
		return nil, err
	}
	return &ds, nil
}

// ListDatasets returns dataset summaries, newest first, without records or
// the raw payload.
func ListDatasets(start, limit int) ([]Dataset, int64, error) {
	var total int64
	if err := DB.Model(&Dataset{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var datasets []Dataset
	err := DB.Preload("UploadedBy").
		Omit("csv_data").
		Order(newestFirst).
		Offset(start).
		Limit(limit).
		Find(&datasets).Error
	if err != nil {
		return nil, 0, err
	}
	return datasets, total, nil
}

func ListRecentDatasets(limit int) ([]Dataset, error) {
	datasets, _, err := ListDatasets(0, limit)
	return datasets, err
}

// DeleteDataset removes the dataset and its records. It returns
// gorm.ErrRecordNotFound when nothing matched.
func DeleteDataset(id int) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		var ds Dataset
		if err := tx.Select("id").First(&ds, id).Error; err != nil {
			return err
		}
		return deleteDatasets(tx, []int{id})
	})
}
