package kafka

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun() domain.ForecastRun {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	return domain.ForecastRun{
		ID:          "run-1",
		WellID:      "W-42",
		HorizonDays: 2,
		Model:       "xgboost:reg:squarederror",
		GeneratedAt: now,
		Points: []domain.ForecastPoint{
			{Date: time.Date(2024, 4, 27, 0, 0, 0, 0, time.UTC), Value: 11.5},
			{Date: time.Date(2024, 4, 28, 0, 0, 0, 0, time.UTC), Value: 11.75},
		},
	}
}

func TestSerializeToMessage(t *testing.T) {
	run := testRun()

	msg, err := serializeToMessage(run)
	require.NoError(t, err)

	assert.Equal(t, []byte("W-42"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "well_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("W-42"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[1].Value)

	var decoded domain.ForecastRun
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, run, decoded)
	assert.Contains(t, string(msg.Value), `"horizon_days":2`)
}

func TestSerializeToMessage_RejectsNaN(t *testing.T) {
	run := testRun()
	run.Points[0].Value = math.NaN()

	_, err := serializeToMessage(run)
	require.Error(t, err)
}
