package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertgrid/alertgrid/internal/broadcast"
	"github.com/alertgrid/alertgrid/pkg/geo"
)

func TestToMessage(t *testing.T) {
	primary := true
	wait := 15
	payload := &AlertPayload{
		Format:          int(broadcast.FormatGSM),
		SlotIndex:       1,
		SubscriptionID:  7,
		SerialNumber:    4321,
		ServiceCategory: broadcast.GsmAlertPresidential,
		Body:            "tsunami warning",
		Emergency:       true,
		EtwsPrimary:     &primary,
		Geometries:      "circle|52.37,4.9|5000",
		MaxWaitSec:      &wait,
		ReceivedAt:      "2026-08-31T10:15:00Z",
	}

	msg, err := ToMessage(payload, time.Now())
	require.NoError(t, err)

	assert.Equal(t, broadcast.FormatGSM, msg.Format)
	assert.Equal(t, 1, msg.SlotIndex)
	assert.Equal(t, 4321, msg.SerialNumber)
	assert.Equal(t, 15, msg.MaxWaitSec)
	require.NotNil(t, msg.Etws)
	assert.True(t, msg.Etws.Primary)
	require.Len(t, msg.Area, 1)
	assert.True(t, msg.Area.Contains(geo.Point{Lat: 52.37, Lng: 4.9}))
	assert.Equal(t, time.Date(2026, 8, 31, 10, 15, 0, 0, time.UTC), msg.ReceivedAt.UTC())
	assert.True(t, msg.NeedsGeoFence())
}

func TestToMessage_Defaults(t *testing.T) {
	publishTime := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	payload := &AlertPayload{
		SerialNumber:    99,
		ServiceCategory: 931,
		Body:            "operator notice",
	}

	msg, err := ToMessage(payload, publishTime)
	require.NoError(t, err)

	assert.Equal(t, broadcast.MaxWaitNotSet, msg.MaxWaitSec, "absent wait budget maps to the unset sentinel")
	assert.Equal(t, publishTime, msg.ReceivedAt, "missing timestamp falls back to publish time")
	assert.Nil(t, msg.Etws)
	assert.Empty(t, msg.Area)
	assert.False(t, msg.NeedsGeoFence(), "no area means no geo-fencing")
}

func TestToMessage_PartialGeometry(t *testing.T) {
	payload := &AlertPayload{
		SerialNumber: 5,
		Geometries:   "circle|10,20|300;blob|1,2|3",
		MaxWaitSec:   func() *int { v := 10; return &v }(),
	}

	msg, err := ToMessage(payload, time.Now())
	require.Error(t, err, "unknown geometry tags must be reported")
	require.Len(t, msg.Area, 1, "decodable geometries are kept")
}

func TestEnvelopeDecoding(t *testing.T) {
	raw := `{"type":"alert","alert":{"serial_number":12,"service_category":4370,"body":"test","emergency":true}}`

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, EventAlert, env.Type)
	require.NotNil(t, env.Alert)
	assert.Equal(t, 12, env.Alert.SerialNumber)
	assert.True(t, env.Alert.Emergency)

	var control Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"airplane_mode"}`), &control))
	assert.Equal(t, EventAirplaneMode, control.Type)
	assert.Nil(t, control.Alert)
}
