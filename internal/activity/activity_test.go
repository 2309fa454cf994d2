package activity

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/fittrack/internal/inference"
)

type recordingNotifier struct {
	values []int
	err    error
}

func (r *recordingNotifier) WriteValue(_ context.Context, v int) error {
	r.values = append(r.values, v)
	return r.err
}

func result(preds ...inference.Prediction) inference.Result {
	return inference.Result{Classification: preds}
}

func pred(label string, v float64) inference.Prediction {
	return inference.Prediction{Label: label, Value: v}
}

func repeat(a Activity, n int) []Activity {
	out := make([]Activity, n)
	for i := range out {
		out[i] = a
	}
	return out
}

func newReferenceSmoother(t *testing.T) *Smoother {
	t.Helper()
	s, err := NewSmoother(DefaultAverageWindow, DefaultRequiredMajority)
	require.NoError(t, err)
	return s
}

func TestLabelMapping(t *testing.T) {
	assert.Equal(t, Rowing, FromLabel("Rowing"))
	assert.Equal(t, Running, FromLabel("Running"))
	assert.Equal(t, None, FromLabel("running"))
	assert.Equal(t, None, FromLabel("None"))
	assert.Equal(t, None, FromLabel("Cycling"))

	assert.Equal(t, Running, FromValue(2))
	assert.Equal(t, None, FromValue(7))
	assert.Equal(t, 0, int(None))
	assert.Equal(t, 1, int(Rowing))
	assert.Equal(t, 2, int(Running))
}

func TestDecide(t *testing.T) {
	p := NewPolicy(DefaultConfidenceThreshold)

	tests := []struct {
		name string
		res  inference.Result
		want Activity
	}{
		{"empty", result(), None},
		{"nothing above threshold", result(pred("Rowing", 0.9), pred("Running", 0.95)), None},
		{"single winner", result(pred("Rowing", 0.02), pred("Running", 0.97)), Running},
		{"single rowing", result(pred("Rowing", 0.99), pred("Running", 0.4)), Rowing},
		{"highest wins", result(pred("Running", 0.999), pred("Rowing", 0.96)), Running},
		{"tie goes to later label", result(pred("Running", 0.97), pred("Rowing", 0.97)), Rowing},
		{"unknown label", result(pred("Cycling", 0.99), pred("Running", 0.1)), None},
		{"unknown label outscores known", result(pred("Running", 0.96), pred("Cycling", 0.99)), None},
		{"NaN never exceeds threshold", result(pred("Running", math.NaN()), pred("Rowing", 0.1)), None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Decide(tt.res))
		})
	}
}

func TestNewSmoother_Invalid(t *testing.T) {
	_, err := NewSmoother(0, 0)
	assert.Error(t, err)
	_, err = NewSmoother(15, 15)
	assert.Error(t, err)
	_, err = NewSmoother(15, -1)
	assert.Error(t, err)
}

func TestSmoother_WarmUp(t *testing.T) {
	s := newReferenceSmoother(t)
	for i := 0; i < DefaultAverageWindow-1; i++ {
		assert.Equal(t, None, s.Smooth(Running), "push %d", i+1)
	}
	assert.Equal(t, Running, s.Smooth(Running))
}

func TestSmoother_HistoryBound(t *testing.T) {
	s := newReferenceSmoother(t)
	for i := 0; i < 100; i++ {
		s.Smooth(Activity(i % 3))
		if i+1 >= DefaultAverageWindow {
			assert.Equal(t, DefaultAverageWindow, s.Len())
		} else {
			assert.Equal(t, i+1, s.Len())
		}
	}
}

func TestSmoother_EvictsOldest(t *testing.T) {
	s := newReferenceSmoother(t)
	for _, a := range append(repeat(Rowing, 5), repeat(None, 15)...) {
		s.Smooth(a)
	}
	assert.Equal(t, repeat(None, 15), s.History())
}

func TestSmoother_StrictMajority(t *testing.T) {
	s := newReferenceSmoother(t)
	var got Activity
	for _, a := range append(repeat(None, 4), repeat(Running, 11)...) {
		got = s.Smooth(a)
	}
	assert.Equal(t, Running, got)

	s = newReferenceSmoother(t)
	for _, a := range append(repeat(Running, 10), repeat(None, 5)...) {
		got = s.Smooth(a)
	}
	assert.Equal(t, None, got)
}

func TestSmoother_OrderDoesNotMatterWithinWindow(t *testing.T) {
	s := newReferenceSmoother(t)
	seq := []Activity{Rowing, None, Rowing, Rowing, None, Rowing, Rowing, Rowing, Running, Rowing, Rowing, Rowing, None, Rowing, Rowing}
	var got Activity
	for _, a := range seq {
		got = s.Smooth(a)
	}
	assert.Equal(t, Rowing, got) // 11 Rowing
}

func TestSmoother_EvaluationOrder(t *testing.T) {
	// With a loose threshold both activities qualify; Running is tested first.
	s, err := NewSmoother(4, 1)
	require.NoError(t, err)
	var got Activity
	for _, a := range []Activity{Rowing, Rowing, Running, Running} {
		got = s.Smooth(a)
	}
	assert.Equal(t, Running, got)
}

func TestSmoother_Reset(t *testing.T) {
	s := newReferenceSmoother(t)
	for i := 0; i < 20; i++ {
		s.Smooth(Running)
	}
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Equal(t, None, s.Smooth(Running))
}

func TestPublisher_Idempotent(t *testing.T) {
	n := &recordingNotifier{}
	p := NewPublisher(n)
	ctx := context.Background()

	wrote, err := p.PublishIfChanged(ctx, Running)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = p.PublishIfChanged(ctx, Running)
	require.NoError(t, err)
	assert.False(t, wrote)

	assert.Equal(t, []int{int(Running)}, n.values)
	assert.Equal(t, Running, p.Published())
}

func TestPublisher_NoneIsInitialState(t *testing.T) {
	n := &recordingNotifier{}
	p := NewPublisher(n)

	wrote, err := p.PublishIfChanged(context.Background(), None)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Empty(t, n.values)

	require.NoError(t, p.Init(context.Background()))
	assert.Equal(t, []int{0}, n.values)
}

func TestPublisher_Transitions(t *testing.T) {
	n := &recordingNotifier{}
	p := NewPublisher(n)
	for _, a := range []Activity{None, Running, Running, Rowing, Rowing, None, None, Running} {
		_, err := p.PublishIfChanged(context.Background(), a)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{2, 1, 0, 2}, n.values)
}

func TestPublisher_WriteErrorStillCommits(t *testing.T) {
	n := &recordingNotifier{err: errors.New("radio busy")}
	p := NewPublisher(n)

	wrote, err := p.PublishIfChanged(context.Background(), Rowing)
	assert.True(t, wrote)
	assert.Error(t, err)

	n.err = nil
	wrote, err = p.PublishIfChanged(context.Background(), Rowing)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Len(t, n.values, 1)
}

func TestSmoothAndPublish_EndToEnd(t *testing.T) {
	s := newReferenceSmoother(t)
	n := &recordingNotifier{}
	p := NewPublisher(n)

	decisions := append(repeat(Running, 11), repeat(None, 4)...)
	var outputs []Activity
	writesPerCycle := make([]int, 0, len(decisions))
	for _, d := range decisions {
		before := len(n.values)
		out := s.Smooth(d)
		outputs = append(outputs, out)
		_, err := p.PublishIfChanged(context.Background(), out)
		require.NoError(t, err)
		writesPerCycle = append(writesPerCycle, len(n.values)-before)
	}

	assert.Equal(t, append(repeat(None, 14), Running), outputs)
	assert.Equal(t, []int{int(Running)}, n.values)
	assert.Equal(t, 1, writesPerCycle[14])
}
