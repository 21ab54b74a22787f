package ingest

import (
	"errors"
	"math"
	"testing"
)

func TestDescribe(t *testing.T) {
	var rows []Row
	for i := 1; i <= 100; i++ {
		rows = append(rows, Row{
			Name:        "eq",
			Type:        "Pump",
			Flowrate:    float64(i),
			Pressure:    -float64(i),
			Temperature: 20,
		})
	}

	stats, err := Describe(rows)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("got %d columns, want 3", len(stats))
	}

	flow := stats[ColumnFlowrate]
	if flow.Count != 100 || flow.Min != 1 || flow.Max != 100 {
		t.Fatalf("flowrate = %+v", flow)
	}
	assertClose(t, "flowrate mean", flow.Mean, 50.5)
	assertWithin(t, "flowrate median", flow.Median, 50, 0.03)
	assertWithin(t, "flowrate p90", flow.P90, 90, 0.03)

	pressure := stats[ColumnPressure]
	if pressure.Min != -100 || pressure.Max != -1 {
		t.Fatalf("pressure = %+v", pressure)
	}
	assertWithin(t, "pressure median", pressure.Median, -50, 0.03)

	temp := stats[ColumnTemperature]
	if temp.Median != 20 || temp.P90 != 20 {
		t.Fatalf("constant column quantiles = %+v", temp)
	}
}

func TestDescribeNoRows(t *testing.T) {
	if _, err := Describe(nil); !errors.Is(err, ErrNoRows) {
		t.Fatalf("err = %v, want ErrNoRows", err)
	}
}

func assertWithin(t *testing.T, name string, got, want, rel float64) {
	t.Helper()
	if math.Abs(got-want) > math.Abs(want)*rel {
		t.Fatalf("%s = %v, want %v within %.0f%%", name, got, want, rel*100)
	}
}
