package export

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/ginjaninja78/meteragg/internal/aggregate"
	"github.com/ginjaninja78/meteragg/internal/resolve"
	"github.com/ginjaninja78/meteragg/internal/types"
)

// SeriesRecord is one daily or cumulative row.
type SeriesRecord struct {
	// RunID identifies the aggregation run that produced the row
	RunID string `parquet:"run_id,snappy"`

	// Kind is "daily" or "cumulative"
	Kind string `parquet:"kind,snappy"`

	// SensorID is ID742 (consumption) or ID735 (feed-in)
	SensorID string `parquet:"sensor_id,snappy"`

	// Label is the resolved quantity, including "Unknown"
	Label string `parquet:"label,snappy"`

	// Day is the calendar day at midnight
	Day time.Time `parquet:"day,snappy"`

	Value float64 `parquet:"value,snappy"`
}

// MonthlyRecord is one periodic month with its deltas. Null quantities are
// stored as missing values.
type MonthlyRecord struct {
	RunID            string   `parquet:"run_id,snappy"`
	Period           string   `parquet:"period,snappy"`
	Consumption      *float64 `parquet:"bezug,optional,snappy"`
	FeedIn           *float64 `parquet:"einspeisung,optional,snappy"`
	ConsumptionDelta *float64 `parquet:"bezug_delta,optional,snappy"`
	FeedInDelta      *float64 `parquet:"einspeisung_delta,optional,snappy"`
}

// SeriesRecords converts the interval views.
func SeriesRecords(runID string, v aggregate.Views) []SeriesRecord {
	out := make([]SeriesRecord, 0, len(v.Daily)+len(v.Cumulative))
	add := func(kind string, rows []types.SeriesEntry) {
		for _, r := range rows {
			out = append(out, SeriesRecord{
				RunID:    runID,
				Kind:     kind,
				SensorID: resolve.SensorID(r.Label),
				Label:    string(r.Label),
				Day:      r.Day,
				Value:    r.Value,
			})
		}
	}
	add(ViewDaily, v.Daily)
	add(ViewCumulative, v.Cumulative)
	return out
}

// MonthlyRecords converts the monthly and delta views, which share row order.
func MonthlyRecords(runID string, v aggregate.Views) []MonthlyRecord {
	out := make([]MonthlyRecord, 0, len(v.Monthly))
	for i, m := range v.Monthly {
		rec := MonthlyRecord{
			RunID:       runID,
			Period:      m.Period,
			Consumption: m.Consumption,
			FeedIn:      m.FeedIn,
		}
		if i < len(v.Deltas) {
			rec.ConsumptionDelta = v.Deltas[i].Consumption
			rec.FeedInDelta = v.Deltas[i].FeedIn
		}
		out = append(out, rec)
	}
	return out
}

// WriteParquet writes records to a Parquet file whose schema is derived
// from T's struct tags.
func WriteParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
