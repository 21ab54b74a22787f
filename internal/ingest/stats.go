package ingest

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
)

// QuantileAccuracy is the relative accuracy of Median and P90.
const QuantileAccuracy = 0.01

// ColumnStats describes one numeric column. Min, Max and Mean are exact.
type ColumnStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

type columnAggregate struct {
	count  int
	sum    float64
	min    float64
	max    float64
	sketch *ddsketch.DDSketch
}

func newColumnAggregate() (*columnAggregate, error) {
	sketch, err := ddsketch.NewDefaultDDSketch(QuantileAccuracy)
	if err != nil {
		return nil, err
	}
	return &columnAggregate{
		min:    math.MaxFloat64,
		max:    -math.MaxFloat64,
		sketch: sketch,
	}, nil
}

func (a *columnAggregate) add(v float64) error {
	a.count++
	a.sum += v
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
	return a.sketch.Add(v)
}

func (a *columnAggregate) result() (ColumnStats, error) {
	median, err := a.sketch.GetValueAtQuantile(0.5)
	if err != nil {
		return ColumnStats{}, err
	}
	p90, err := a.sketch.GetValueAtQuantile(0.9)
	if err != nil {
		return ColumnStats{}, err
	}
	// sketch estimates may fall slightly outside the observed range
	return ColumnStats{
		Count:  a.count,
		Min:    a.min,
		Max:    a.max,
		Mean:   a.sum / float64(a.count),
		Median: clamp(median, a.min, a.max),
		P90:    clamp(p90, a.min, a.max),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Describe computes ColumnStats for Flowrate, Pressure and Temperature, keyed
// by column name.
func Describe(rows []Row) (map[string]ColumnStats, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	columns := []struct {
		name  string
		value func(Row) float64
	}{
		{ColumnFlowrate, func(r Row) float64 { return r.Flowrate }},
		{ColumnPressure, func(r Row) float64 { return r.Pressure }},
		{ColumnTemperature, func(r Row) float64 { return r.Temperature }},
	}

	out := make(map[string]ColumnStats, len(columns))
	for _, col := range columns {
		agg, err := newColumnAggregate()
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if err := agg.add(col.value(r)); err != nil {
				return nil, fmt.Errorf("column %q: %w", col.name, err)
			}
		}
		stats, err := agg.result()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.name, err)
		}
		out[col.name] = stats
	}
	return out, nil
}
