// Package dataset ties ingestion, persistence and the side effects of a
// dataset's lifecycle together so the HTTP server and the CLI share one path.
package dataset

import (
	"context"
	"fmt"
	"time"

	"chemviz/internal/archive"
	"chemviz/internal/event"
	"chemviz/internal/ingest"
	"chemviz/internal/model"
	"chemviz/internal/report"
	"chemviz/pkg/log"
)

type Service struct {
	maxHistory int
	archive    archive.Archive
	publisher  event.Publisher
	reports    *report.Service
	now        func() time.Time
}

func NewService(maxHistory int, a archive.Archive, p event.Publisher, reports *report.Service) *Service {
	if a == nil {
		a = archive.Nop{}
	}
	if p == nil {
		p = event.Nop{}
	}
	if reports == nil {
		reports = report.NewService(nil, 0)
	}
	return &Service{
		maxHistory: maxHistory,
		archive:    a,
		publisher:  p,
		reports:    reports,
		now:        time.Now,
	}
}

func (s *Service) Reports() *report.Service {
	return s.reports
}

// Ingest parses data, stores the dataset with its records and applies the
// retention window. Input errors satisfy ingest.IsInputError and leave the
// store untouched.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte, uploadedBy *model.User) (*model.Dataset, error) {
	res, err := ingest.ParseBytes(data)
	if err != nil {
		return nil, err
	}

	ds, err := model.NewDataset(filename, res, uploadedBy)
	if err != nil {
		return nil, err
	}

	evicted, err := model.CreateDataset(ds, s.maxHistory)
	if err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}

	logger := log.WithDataset(ctx, ds.Id)
	logger.Infof("dataset created from %s with %d records", filename, ds.TotalCount)

	if err := s.archive.Put(ctx, ds.Id, filename, res.Raw); err != nil {
		logger.Warnf("archive dataset failed, err: %v", err)
	}
	s.publish(ctx, &event.Event{
		Type:       event.TypeDatasetCreated,
		DatasetIds: []int{ds.Id},
		Filename:   ds.Filename,
		TotalCount: ds.TotalCount,
	})
	if len(evicted) > 0 {
		logger.Infof("evicted datasets %v beyond history size %d", evicted, s.maxHistory)
		s.removed(ctx, event.TypeDatasetEvicted, evicted)
	}

	return ds, nil
}

// SeedDemo uploads the bundled sample file as the demo user, with the same
// side effects as any other upload.
func (s *Service) SeedDemo(ctx context.Context) (*model.Dataset, error) {
	user, err := model.EnsureDemoUser()
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, model.SampleFilename, model.SampleCSV, user)
}

// Delete removes one dataset. It returns gorm.ErrRecordNotFound when the
// dataset does not exist.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := model.DeleteDataset(id); err != nil {
		return err
	}
	log.WithDataset(ctx, id).Info("dataset deleted")
	s.removed(ctx, event.TypeDatasetDeleted, []int{id})
	return nil
}

// Trim applies the retention window without a new upload, so a lowered
// history size takes effect at startup.
func (s *Service) Trim(ctx context.Context) ([]int, error) {
	evicted, err := model.TrimDatasetHistory(s.maxHistory)
	if err != nil {
		return nil, err
	}
	if len(evicted) > 0 {
		s.removed(ctx, event.TypeDatasetEvicted, evicted)
	}
	return evicted, nil
}

func (s *Service) removed(ctx context.Context, eventType string, ids []int) {
	for _, id := range ids {
		if err := s.archive.Remove(ctx, id); err != nil {
			log.WithDataset(ctx, id).Warnf("remove archived dataset failed, err: %v", err)
		}
	}
	s.reports.Invalidate(ctx, ids...)
	s.publish(ctx, &event.Event{Type: eventType, DatasetIds: ids})
}

func (s *Service) publish(ctx context.Context, e *event.Event) {
	e.Timestamp = s.now().UTC()
	if err := s.publisher.Publish(e); err != nil {
		log.GetLogger(ctx).Warnf("publish %s event failed, err: %v", e.Type, err)
	}
}

// HandleEvent keeps this instance's report cache in step with datasets
// removed by other instances.
func (s *Service) HandleEvent(ctx context.Context, e *event.Event) error {
	switch e.Type {
	case event.TypeDatasetEvicted, event.TypeDatasetDeleted:
		s.reports.Invalidate(ctx, e.DatasetIds...)
	}
	return nil
}
