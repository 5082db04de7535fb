package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair(t *testing.T) {
	var p Pair
	assert.Nil(t, p.Get(Consumption))

	p.Set(Consumption, Float(1.5))
	p.Set(Unknown, Float(9))
	assert.Equal(t, 1.5, *p.Get(Consumption))
	assert.Nil(t, p.Get(Unknown))

	p.Set(FeedIn, Float(0))
	assert.Equal(t, 0.0, *p.Get(FeedIn))
}

func TestMonthlyEntry_JSON(t *testing.T) {
	data, err := json.Marshal(MonthlyEntry{Period: "2024-03", Pair: Pair{Consumption: Float(150)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2024-03","Bezug":150,"Einspeisung":null}`, string(data))
}

func TestDialect_Text(t *testing.T) {
	data, err := json.Marshal(map[string]Dialect{"a": Periodic, "b": Interval, "c": Unrecognized})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"periodic","b":"interval","c":"unrecognized"}`, string(data))
}

func TestKeys(t *testing.T) {
	ts := time.Date(2024, 2, 29, 23, 45, 0, 0, time.UTC)
	assert.Equal(t, "2024-02-29", DayKey(ts))
	assert.Equal(t, "2024-02", MonthKey(ts))
	assert.Equal(t, "2024-02-29", SeriesEntry{Day: ts}.DayString())
}

func TestFileError(t *testing.T) {
	assert.NoError(t, NewFileError("a.xml", nil))

	err := NewFileError("a.xml", MissingField("DocumentID"))
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.EqualError(t, err, "a.xml: meteragg: missing field: DocumentID")

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "a.xml", fe.Path)

	assert.Same(t, err, NewFileError("a.xml", err), "same path is not wrapped twice")

	wrapped := fmt.Errorf("run aborted: %w", err)
	assert.True(t, errors.Is(wrapped, ErrMissingField))
}

func TestWarning_String(t *testing.T) {
	w := Warning{Code: WarnPartialDay, File: "p.xml", Period: "2024-03-02", Message: "40 of 96 observations"}
	assert.Equal(t, "partial_day: p.xml [2024-03-02]: 40 of 96 observations", w.String())

	w.Period = ""
	assert.Equal(t, "partial_day: p.xml: 40 of 96 observations", w.String())
}
