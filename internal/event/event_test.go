package event

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"chemviz/internal/config"
)

func TestEventJSON(t *testing.T) {
	e := &Event{
		Type:       TypeDatasetCreated,
		DatasetIds: []int{9},
		Filename:   "plant.csv",
		TotalCount: 3,
		Timestamp:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"type":"dataset.created","datasetIds":[9],"filename":"plant.csv","totalCount":3,"timestamp":"2024-05-01T10:00:00Z"}`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}

	evicted, _ := json.Marshal(&Event{Type: TypeDatasetEvicted, DatasetIds: []int{1, 2}, Timestamp: e.Timestamp})
	want = `{"type":"dataset.evicted","datasetIds":[1,2],"timestamp":"2024-05-01T10:00:00Z"}`
	if string(evicted) != want {
		t.Fatalf("got %s\nwant %s", evicted, want)
	}
}

func TestNewPublisherDisabledIsNop(t *testing.T) {
	p, err := NewPublisher(config.NSQConfig{})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if _, ok := p.(Nop); !ok {
		t.Fatalf("got %T, want Nop", p)
	}
	if err := p.Publish(&Event{Type: TypeDatasetCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	p.Stop()
}

func TestConsumerHandle(t *testing.T) {
	var got []*Event
	fail := false
	c, err := NewConsumer(config.NSQConfig{Topic: "chemviz_datasets"}, "test", func(_ context.Context, e *Event) error {
		if fail {
			return errors.New("boom")
		}
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	defer c.Stop()

	if err := c.handle([]byte(`{"type":"dataset.evicted","datasetIds":[3,4]}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(got) != 1 || got[0].Type != TypeDatasetEvicted || !reflect.DeepEqual(got[0].DatasetIds, []int{3, 4}) {
		t.Fatalf("handled %+v", got)
	}

	if err := c.handle([]byte(`not json`)); err != nil {
		t.Fatalf("malformed message should be dropped, got %v", err)
	}

	fail = true
	if err := c.handle([]byte(`{"type":"dataset.deleted","datasetIds":[5]}`)); err == nil {
		t.Fatalf("expected handler error to be returned for requeue")
	}
}
