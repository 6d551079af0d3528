package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	assert.NotPanics(t, func() {
		tr.Tick()
		tr.FinishSuccess()
		tr.FinishWithFailures(3)
	})
}

func TestTrackerConcurrentTicks(t *testing.T) {
	var buf bytes.Buffer
	tr := newTracker(&buf, "Scanning", 50)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(tr.Tick)
	}
	wg.Wait()

	assert.Equal(t, int64(50), tr.bar.State().CurrentNum)
	tr.FinishWithFailures(2)
	assert.Contains(t, buf.String(), "Scanning: 2 file(s) could not be processed")
}

func TestNewTracker(t *testing.T) {
	tr := NewTracker("Files", 10)
	assert.NotNil(t, tr)
	assert.Equal(t, "Files", tr.label)
	tr.FinishSuccess()
}
