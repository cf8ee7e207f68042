package core

import (
	"testing"

	"github.com/go-drift/modelkit/pkg/dispatch"
	"github.com/go-drift/modelkit/pkg/errors"
)

type counter struct {
	Count int
}

type incremented struct {
	By int
}

func newTestApp(t *testing.T, seed uint64) (*App, *dispatch.TestDispatcher) {
	t.Helper()
	d := dispatch.NewTestDispatcher(seed)
	a := NewApp(WithDispatcher(d))
	t.Cleanup(a.Quit)
	return a, d
}

func buildCounter(t *testing.T, a *App, start int) *Model[counter] {
	t.Helper()
	m, err := BuildModel(a, func(cx *ModelContext[counter]) counter {
		return counter{Count: start}
	})
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	return m
}

func increment(v *counter, cx *ModelContext[counter]) int {
	v.Count++
	return v.Count
}

func readCount(t *testing.T, a *App, m *Model[counter]) int {
	t.Helper()
	n, err := ReadModel(a, m, func(v *counter, _ *App) int { return v.Count })
	if err != nil {
		t.Fatalf("ReadModel: %v", err)
	}
	return n
}

// recordPanics installs an error handler that collects recovered panics
// for the duration of the test.
func recordPanics(t *testing.T) *[]*errors.PanicError {
	t.Helper()
	var panics []*errors.PanicError
	errors.SetHandler(panicRecorder{&panics})
	t.Cleanup(func() { errors.SetHandler(nil) })
	return &panics
}

type panicRecorder struct{ panics *[]*errors.PanicError }

func (panicRecorder) HandleError(*errors.Error) {}

func (r panicRecorder) HandlePanic(p *errors.PanicError) { *r.panics = append(*r.panics, p) }
