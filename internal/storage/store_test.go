package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenMigrates(t *testing.T) {
	s := testStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// Reopening an already-migrated database is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestSessionLifecycle(t *testing.T) {
	s := testStore(t)

	id, err := s.CreateSession(123456, 654321, "/dev/ttyUSB0")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, err := s.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), sess.CameraSerial)
	assert.Equal(t, uint32(654321), sess.SensorSerial)
	assert.Equal(t, "/dev/ttyUSB0", sess.Port)
	assert.False(t, sess.EndedAt.Valid, "open session has no end time")

	require.NoError(t, s.CloseSession(id))
	sess, err = s.GetSession(id)
	require.NoError(t, err)
	assert.True(t, sess.EndedAt.Valid)

	assert.Error(t, s.CloseSession("no-such-session"))
}

func TestCaptures(t *testing.T) {
	s := testStore(t)
	id, err := s.CreateSession(1, 2, "/dev/ttyUSB1")
	require.NoError(t, err)

	_, err = s.RecordCapture(Capture{
		SessionID:  id,
		RunPath:    "/data/run1",
		StartedNs:  100,
		EndedNs:    200,
		ByteCount:  657418 * 3,
		FrameCount: 2,
		GapCount:   1,
	})
	require.NoError(t, err)
	_, err = s.RecordCapture(Capture{SessionID: id, RunPath: "/data/run2"})
	require.NoError(t, err)

	captures, err := s.SessionCaptures(id)
	require.NoError(t, err)
	require.Len(t, captures, 2)
	assert.Equal(t, "/data/run1", captures[0].RunPath)
	assert.Equal(t, int64(2), captures[0].FrameCount)
	assert.Equal(t, int64(1), captures[0].GapCount)
}

func TestFrameRecords(t *testing.T) {
	s := testStore(t)
	id, err := s.CreateSession(1, 2, "")
	require.NoError(t, err)
	capID, err := s.RecordCapture(Capture{SessionID: id})
	require.NoError(t, err)

	records := []FrameRecord{
		{
			CaptureID: capID, FrameIndex: 0, TimestampNs: 100, Valid: true,
			MinCount:  sql.NullInt64{Int64: 900, Valid: true},
			MaxCount:  sql.NullInt64{Int64: 2100, Valid: true},
			MeanCount: sql.NullFloat64{Float64: 1500.5, Valid: true},
		},
		{CaptureID: capID, FrameIndex: 1, TimestampNs: 140, Valid: false},
	}
	require.NoError(t, s.RecordFrames(records))
	require.NoError(t, s.RecordFrames(nil), "empty batch is a no-op")

	got, err := s.CaptureFrames(capID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Valid)
	assert.Equal(t, int64(2100), got[0].MaxCount.Int64)
	assert.False(t, got[1].Valid)
	assert.False(t, got[1].MeanCount.Valid, "invalid frames carry no stats")
}

func TestTemperatures(t *testing.T) {
	s := testStore(t)
	id, err := s.CreateSession(1, 2, "")
	require.NoError(t, err)

	require.NoError(t, s.RecordTemperature(id, "fpa", 20.0))
	require.NoError(t, s.RecordTemperature(id, "housing", 23.45))
	require.NoError(t, s.RecordTemperature(id, "shutter", 21.0))

	readings, err := s.SessionTemperatures(id)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, "fpa", readings[0].Sensor)
	assert.Equal(t, 20.0, readings[0].Celsius)
	assert.Equal(t, "shutter", readings[2].Sensor)
}

func TestSettingReports(t *testing.T) {
	s := testStore(t)
	id, err := s.CreateSession(1, 2, "")
	require.NoError(t, err)

	require.NoError(t, s.RecordSettingReport(id, "gain mode", []byte{0x00, 0x02}, []byte{0x00, 0x02}, true, nil))
	require.NoError(t, s.RecordSettingReport(id, "ffc mode", []byte{0x00, 0x00}, []byte{0x00, 0x01}, false, nil))
	require.NoError(t, s.RecordSettingReport(id, "xp mode", []byte{0x00, 0x02}, nil, false, errors.New("readback: timeout")))

	names, err := s.UnconfirmedSettings(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"ffc mode", "xp mode"}, names)
}
