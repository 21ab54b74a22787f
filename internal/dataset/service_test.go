package dataset

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"chemviz/internal/cache"
	"chemviz/internal/event"
	"chemviz/internal/ingest"
	"chemviz/internal/model"
	"chemviz/internal/report"
	"chemviz/internal/testutil"
)

const sampleCSV = "Equipment Name,Type,Flowrate,Pressure,Temperature\nP1,Pump,120,5.2,110\nV1,Valve,60,4.1,105\nP2,Pump,130,5.6,118\n"

type fakeArchive struct {
	mu      sync.Mutex
	puts    map[int]string
	removed []int
	err     error
}

func (a *fakeArchive) Put(_ context.Context, id int, filename string, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.puts == nil {
		a.puts = make(map[int]string)
	}
	a.puts[id] = filename
	return a.err
}

func (a *fakeArchive) Remove(_ context.Context, id int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, id)
	return a.err
}

type fakePublisher struct {
	events []*event.Event
	err    error
}

func (p *fakePublisher) Publish(e *event.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Stop() {}

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := model.InitDB(testutil.MemoryDBConfig(t.Name()))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
}

func TestIngestAndEvict(t *testing.T) {
	setupTestDB(t)

	arch := &fakeArchive{}
	pub := &fakePublisher{}
	svc := NewService(2, arch, pub, nil)
	ctx := context.Background()

	var ids []int
	for i := 0; i < 3; i++ {
		ds, err := svc.Ingest(ctx, fmt.Sprintf("f%d.csv", i), []byte(sampleCSV), nil)
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		ids = append(ids, ds.Id)
	}

	if len(arch.puts) != 3 || arch.puts[ids[2]] != "f2.csv" {
		t.Fatalf("archive puts = %v", arch.puts)
	}
	if !reflect.DeepEqual(arch.removed, []int{ids[0]}) {
		t.Fatalf("archive removed = %v, want [%d]", arch.removed, ids[0])
	}

	var types []string
	for _, e := range pub.events {
		types = append(types, e.Type)
		if e.Timestamp.IsZero() {
			t.Fatalf("event without timestamp: %+v", e)
		}
	}
	want := []string{event.TypeDatasetCreated, event.TypeDatasetCreated, event.TypeDatasetCreated, event.TypeDatasetEvicted}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	last := pub.events[len(pub.events)-1]
	if !reflect.DeepEqual(last.DatasetIds, []int{ids[0]}) {
		t.Fatalf("evicted ids = %v", last.DatasetIds)
	}
	if pub.events[0].TotalCount != 3 || pub.events[0].Filename != "f0.csv" {
		t.Fatalf("created event = %+v", pub.events[0])
	}
}

func TestIngestRejectsBadInputWithoutSideEffects(t *testing.T) {
	setupTestDB(t)

	arch := &fakeArchive{}
	pub := &fakePublisher{}
	svc := NewService(5, arch, pub, nil)

	bad := "Equipment Name,Type,Flowrate,Pressure,Temperature\nP1,Pump,abc,5,110\n"
	_, err := svc.Ingest(context.Background(), "bad.csv", []byte(bad), nil)
	if !ingest.IsInputError(err) {
		t.Fatalf("err = %v, want input error", err)
	}
	if n := testutil.Count(t, model.DB.Model(&model.Dataset{})); n != 0 {
		t.Fatalf("datasets = %d after failed ingest", n)
	}
	if len(arch.puts) != 0 || len(pub.events) != 0 {
		t.Fatalf("side effects ran for a rejected upload")
	}
}

func TestSideEffectFailuresDoNotFailIngest(t *testing.T) {
	setupTestDB(t)

	boom := errors.New("unavailable")
	svc := NewService(5, &fakeArchive{err: boom}, &fakePublisher{err: boom}, nil)
	if _, err := svc.Ingest(context.Background(), "a.csv", []byte(sampleCSV), nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
}

func TestDelete(t *testing.T) {
	setupTestDB(t)

	arch := &fakeArchive{}
	pub := &fakePublisher{}
	svc := NewService(5, arch, pub, nil)
	ctx := context.Background()

	ds, err := svc.Ingest(ctx, "a.csv", []byte(sampleCSV), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := svc.Delete(ctx, ds.Id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !reflect.DeepEqual(arch.removed, []int{ds.Id}) {
		t.Fatalf("archive removed = %v", arch.removed)
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != event.TypeDatasetDeleted {
		t.Fatalf("last event = %s", last.Type)
	}

	pub.events = nil
	if err := svc.Delete(ctx, ds.Id); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("events published for a missing dataset")
	}
}

func TestTrim(t *testing.T) {
	setupTestDB(t)

	pub := &fakePublisher{}
	wide := NewService(10, nil, nil, nil)
	for i := 0; i < 4; i++ {
		if _, err := wide.Ingest(context.Background(), "a.csv", []byte(sampleCSV), nil); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	narrow := NewService(1, nil, pub, nil)
	evicted, err := narrow.Trim(context.Background())
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if len(evicted) != 3 || len(pub.events) != 1 {
		t.Fatalf("evicted = %v, events = %d", evicted, len(pub.events))
	}
}

type recordingCache struct {
	cache.Nop
	deleted []string
}

func (c *recordingCache) Del(_ context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	return nil
}

func TestHandleEvent(t *testing.T) {
	rc := &recordingCache{}
	svc := NewService(5, nil, nil, report.NewService(rc, time.Minute))
	ctx := context.Background()

	if err := svc.HandleEvent(ctx, &event.Event{Type: event.TypeDatasetCreated, DatasetIds: []int{1}}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(rc.deleted) != 0 {
		t.Fatalf("created event invalidated %v", rc.deleted)
	}

	for _, typ := range []string{event.TypeDatasetEvicted, event.TypeDatasetDeleted} {
		rc.deleted = nil
		if err := svc.HandleEvent(ctx, &event.Event{Type: typ, DatasetIds: []int{2, 3}}); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
		want := []string{report.CacheKey(2), report.CacheKey(3)}
		if !reflect.DeepEqual(rc.deleted, want) {
			t.Errorf("%s: deleted = %v, want %v", typ, rc.deleted, want)
		}
	}
}

func TestSeedDemoRunsUploadSideEffects(t *testing.T) {
	setupTestDB(t)

	arch := &fakeArchive{}
	pub := &fakePublisher{}
	svc := NewService(1, arch, pub, nil)
	ctx := context.Background()

	old, err := svc.Ingest(ctx, "old.csv", []byte(sampleCSV), nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	pub.events = nil

	ds, err := svc.SeedDemo(ctx)
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	if ds.UploadedBy == nil || ds.UploadedBy.Username != "demo" {
		t.Fatalf("seed uploaded by %+v", ds.UploadedBy)
	}
	if arch.puts[ds.Id] != model.SampleFilename {
		t.Fatalf("archived = %v", arch.puts)
	}
	if !reflect.DeepEqual(arch.removed, []int{old.Id}) {
		t.Fatalf("removed = %v, want [%d]", arch.removed, old.Id)
	}
	if len(pub.events) != 2 || pub.events[0].Type != event.TypeDatasetCreated || pub.events[1].Type != event.TypeDatasetEvicted {
		t.Fatalf("events = %+v", pub.events)
	}

	// the demo account is reused on a second run
	again, err := svc.SeedDemo(ctx)
	if err != nil {
		t.Fatalf("SeedDemo again: %v", err)
	}
	if again.UploadedBy.Id != ds.UploadedBy.Id {
		t.Fatalf("second seed used user %d, want %d", again.UploadedBy.Id, ds.UploadedBy.Id)
	}
}
