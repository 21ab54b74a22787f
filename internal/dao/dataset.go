package dao

import (
	"time"

	"chemviz/internal/model"
)

type RecordSpec struct {
	Id            int     `json:"id"`
	EquipmentName string  `json:"equipment_name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

type DatasetSpec struct {
	Id                    int            `json:"id"`
	UploadedBy            *UserSpec      `json:"uploaded_by"`
	UploadedAt            string         `json:"uploaded_at"`
	Filename              string         `json:"filename"`
	TotalCount            int            `json:"total_count"`
	AvgFlowrate           float64        `json:"avg_flowrate"`
	AvgPressure           float64        `json:"avg_pressure"`
	AvgTemperature        float64        `json:"avg_temperature"`
	EquipmentDistribution map[string]int `json:"equipment_distribution"`
	// 仅在详情接口返回
	Records []RecordSpec `json:"records,omitempty"`
}

type ListDatasetsRequest struct {
	// 分页开始位置
	Start int `form:"start" binding:"min=0"`
	// 分页大小
	Limit int `form:"limit" binding:"min=0,max=100"`
}

type ListDatasetsResponse struct {
	Items []DatasetSpec `json:"items"`
	Total int64         `json:"total"`
}

// FromDatasetModel converts ds. Records are included only when withRecords is
// set and ds.Records was preloaded.
func FromDatasetModel(ds *model.Dataset, withRecords bool) (*DatasetSpec, error) {
	dist, err := ds.Distribution()
	if err != nil {
		return nil, err
	}

	spec := &DatasetSpec{
		Id:                    ds.Id,
		UploadedAt:            ds.UploadedAt.Format(time.RFC3339),
		Filename:              ds.Filename,
		TotalCount:            ds.TotalCount,
		AvgFlowrate:           ds.AvgFlowrate,
		AvgPressure:           ds.AvgPressure,
		AvgTemperature:        ds.AvgTemperature,
		EquipmentDistribution: dist,
	}
	if ds.UploadedBy != nil {
		spec.UploadedBy = ToUserSpec(ds.UploadedBy)
	}
	if withRecords {
		spec.Records = make([]RecordSpec, len(ds.Records))
		for i, r := range ds.Records {
			spec.Records[i] = RecordSpec{
				Id:            r.Id,
				EquipmentName: r.EquipmentName,
				EquipmentType: r.EquipmentType,
				Flowrate:      r.Flowrate,
				Pressure:      r.Pressure,
				Temperature:   r.Temperature,
			}
		}
	}
	return spec, nil
}

func FromDatasetModels(datasets []model.Dataset) ([]DatasetSpec, error) {
	items := make([]DatasetSpec, len(datasets))
	for i := range datasets {
		spec, err := FromDatasetModel(&datasets[i], false)
		if err != nil {
			return nil, err
		}
		items[i] = *spec
	}
	return items, nil
}
