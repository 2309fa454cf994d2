package sensors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fittrack/internal/imu"
)

func TestSerial_ReadsTriples(t *testing.T) {
	input := "Device OK!\n\n0.10\t0.20\t0.30\n1 2 3\n"
	s := NewSerialFromReader(strings.NewReader(input))
	require.NoError(t, s.Begin())

	var got []float64
	for i := 0; i < 2; i++ {
		for _, axis := range imu.Axes {
			v, err := s.ReadAxis(axis)
			require.NoError(t, err)
			got = append(got, v)
		}
	}
	assert.Equal(t, []float64{0.10, 0.20, 0.30, 1, 2, 3}, got)
}

func TestSerial_EOFIsReadError(t *testing.T) {
	s := NewSerialFromReader(strings.NewReader("1 2 3\n"))
	require.NoError(t, s.Begin())

	_, err := s.ReadAxis(imu.AxisX)
	require.NoError(t, err)
	_, err = s.ReadAxis(imu.AxisX)
	assert.ErrorIs(t, err, ErrSensorRead)
}

func TestSerial_ReadBeforeBegin(t *testing.T) {
	s := NewSerialFromReader(strings.NewReader(""))
	_, err := s.ReadAxis(imu.AxisX)
	assert.ErrorIs(t, err, ErrSensorRead)
}

func TestMock_Deterministic(t *testing.T) {
	a := NewMockSource("Running", 50)
	b := NewMockSource("running", 50)
	require.NoError(t, a.Begin())

	for i := 0; i < 10; i++ {
		for _, axis := range imu.Axes {
			va, err := a.ReadAxis(axis)
			require.NoError(t, err)
			vb, err := b.ReadAxis(axis)
			require.NoError(t, err)
			assert.Equal(t, va, vb)
		}
	}
}

func TestMock_UnknownActivityIsQuiet(t *testing.T) {
	m := NewMockSource("Swimming", 50)
	for i := 0; i < 50; i++ {
		z, err := m.ReadAxis(imu.AxisX)
		require.NoError(t, err)
		assert.InDelta(t, 0, z, 0.02)
	}
}
