package inference

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fittrack/internal/imu"
	"github.com/relabs-tech/fittrack/internal/sensors"
	"github.com/relabs-tech/fittrack/internal/timeutil"
)

const tinyModel = `
name: tiny
frame_size: 6
labels: [Rowing, Running]
weights:
  - [1, 0, 0, 0,  0, 0, 0, 0,  0, 0, 0, 0]
  - [0, 0, 0, 0,  0, 0, 0, 0,  0, 0, 0, 1]
bias: [0, -1]
feature_mean: [0, 0, 0, 0,  0, 0, 0, 0,  0, 0, 0, 0]
feature_std:  [1, 1, 1, 1,  1, 1, 1, 1,  1, 1, 1, 0]
`

func newTinyEngine(t *testing.T, activation string) *LinearEngine {
	t.Helper()
	m, err := ParseModel([]byte(tinyModel))
	require.NoError(t, err)
	m.Activation = activation
	e, err := NewLinearEngine(m, timeutil.NewMockClock(time.Unix(0, 0)))
	require.NoError(t, err)
	return e
}

func TestFeatures(t *testing.T) {
	// x = {1, 3}, y = {-2, 2}, z = {0, 0}
	got := Features([]float64{1, -2, 0, 3, 2, 0})
	want := []float64{
		2, math.Sqrt2, math.Sqrt(5), 2,
		0, 2 * math.Sqrt2, 2, 4,
		0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Features mismatch (-want +got):\n%s", diff)
	}
}

func TestParseModel_Invalid(t *testing.T) {
	tests := map[string]string{
		"frame size": "name: m\nframe_size: 4\nlabels: [a]\nweights: [[0,0,0,0,0,0,0,0,0,0,0,0]]\nbias: [0]\n",
		"no labels":  "name: m\nframe_size: 3\nweights: []\nbias: []\n",
		"short row":  "name: m\nframe_size: 3\nlabels: [a]\nweights: [[0]]\nbias: [0]\n",
		"bias":       "name: m\nframe_size: 3\nlabels: [a]\nweights: [[0,0,0,0,0,0,0,0,0,0,0,0]]\nbias: []\n",
		"activation": "name: m\nframe_size: 3\nlabels: [a]\nactivation: relu\nweights: [[0,0,0,0,0,0,0,0,0,0,0,0]]\nbias: [0]\n",
		"stats pair": "name: m\nframe_size: 3\nlabels: [a]\nweights: [[0,0,0,0,0,0,0,0,0,0,0,0]]\nbias: [0]\nfeature_mean: [0,0,0,0,0,0,0,0,0,0,0,0]\n",
		"not yaml":   "{{{",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseModel([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadModel_RepositoryModel(t *testing.T) {
	m, err := LoadModel(filepath.Join("..", "..", "model.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 300, m.FrameSize)
	assert.Equal(t, []string{"Rowing", "Running"}, m.Labels)
}

func TestLoadModel_Missing(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLinearEngine_Sigmoid(t *testing.T) {
	e := newTinyEngine(t, "")
	sig, err := e.SignalFromBuffer([]float64{1, -2, 0, 3, 2, 0})
	require.NoError(t, err)

	res, err := e.RunClassifier(context.Background(), sig)
	require.NoError(t, err)
	require.Len(t, res.Classification, 2)

	assert.Equal(t, "Rowing", res.Classification[0].Label)
	assert.InDelta(t, 1/(1+math.Exp(-2)), res.Classification[0].Value, 1e-9)
	assert.Equal(t, "Running", res.Classification[1].Label)
	assert.InDelta(t, 1/(1+math.Exp(1)), res.Classification[1].Value, 1e-9)

	// Largest |z| is the y peak-to-peak (4); z ptp has zero std and is skipped.
	require.True(t, res.HasAnomaly)
	assert.InDelta(t, 4, res.Anomaly, 1e-9)
}

func TestLinearEngine_SoftmaxSumsToOne(t *testing.T) {
	e := newTinyEngine(t, "softmax")
	sig, err := e.SignalFromBuffer([]float64{1, -2, 0, 3, 2, 0})
	require.NoError(t, err)

	res, err := e.RunClassifier(context.Background(), sig)
	require.NoError(t, err)
	var sum float64
	for _, p := range res.Classification {
		sum += p.Value
	}
	assert.InDelta(t, 1, sum, 1e-9)
}

func TestLinearEngine_WrongLength(t *testing.T) {
	e := newTinyEngine(t, "")
	_, err := e.SignalFromBuffer(make([]float64, 9))
	assert.ErrorIs(t, err, ErrSignalConversion)

	_, err = e.RunClassifier(context.Background(), Signal{data: make([]float64, 3)})
	assert.ErrorIs(t, err, ErrInference)
}

func TestLinearEngine_NaNIsInferenceError(t *testing.T) {
	e := newTinyEngine(t, "")
	sig, err := e.SignalFromBuffer([]float64{math.NaN(), 0, 0, 0, 0, 0})
	require.NoError(t, err)

	_, err = e.RunClassifier(context.Background(), sig)
	assert.ErrorIs(t, err, ErrInference)
}

type failingEngine struct {
	frameSize int
	convErr   error
	runErr    error
	runCalls  int
}

func (f *failingEngine) InputFrameSize() int { return f.frameSize }

func (f *failingEngine) SignalFromBuffer(buf []float64) (Signal, error) {
	if f.convErr != nil {
		return Signal{}, f.convErr
	}
	return Signal{data: buf}, nil
}

func (f *failingEngine) RunClassifier(context.Context, Signal) (Result, error) {
	f.runCalls++
	if f.runErr != nil {
		return Result{}, f.runErr
	}
	return Result{Classification: []Prediction{{Label: "Running", Value: 1}}}, nil
}

func TestClassifier_LengthMismatch(t *testing.T) {
	for _, n := range []int{0, 3, 5, 7, 300} {
		engine := &failingEngine{frameSize: 6}
		c := NewClassifier(engine)

		res, err := c.Classify(context.Background(), make([]float64, n))
		assert.ErrorIs(t, err, ErrSignalConversion, "length %d", n)
		assert.Empty(t, res.Classification)
		assert.Zero(t, engine.runCalls)
	}
}

func TestClassifier_WrapsEngineErrors(t *testing.T) {
	c := NewClassifier(&failingEngine{frameSize: 3, convErr: errors.New("bad buffer")})
	_, err := c.Classify(context.Background(), make([]float64, 3))
	assert.ErrorIs(t, err, ErrSignalConversion)

	c = NewClassifier(&failingEngine{frameSize: 3, runErr: errors.New("status -5")})
	_, err = c.Classify(context.Background(), make([]float64, 3))
	assert.ErrorIs(t, err, ErrInference)
	assert.NotErrorIs(t, err, ErrSignalConversion)
}

func TestClassifier_Success(t *testing.T) {
	c := NewClassifier(&failingEngine{frameSize: 3})
	res, err := c.Classify(context.Background(), make([]float64, 3))
	require.NoError(t, err)
	assert.Equal(t, []Prediction{{Label: "Running", Value: 1}}, res.Classification)
	assert.Equal(t, 3, c.FrameSize())
}

func TestRepositoryModel_SeparatesMockActivities(t *testing.T) {
	m, err := LoadModel(filepath.Join("..", "..", "model.yaml"))
	require.NoError(t, err)
	e, err := NewLinearEngine(m, timeutil.RealClock{})
	require.NoError(t, err)
	c := NewClassifier(e)

	want := map[string]string{"Running": "Running", "Rowing": "Rowing", "None": ""}
	for activity, winner := range want {
		src := sensors.NewMockSource(activity, m.SampleRateHz)
		window := make([]float64, m.FrameSize)
		for i := 0; i < m.FrameSize; i += 3 {
			for a := 0; a < 3; a++ {
				v, err := src.ReadAxis(imu.Axes[a])
				require.NoError(t, err)
				window[i+a] = v * imu.StandardGravity
			}
		}

		res, err := c.Classify(context.Background(), window)
		require.NoError(t, err)
		for _, p := range res.Classification {
			if p.Label == winner {
				assert.Greater(t, p.Value, 0.95, "%s: %s", activity, p.Label)
			} else {
				assert.Less(t, p.Value, 0.5, "%s: %s", activity, p.Label)
			}
		}
	}
}
