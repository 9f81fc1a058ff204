package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropycollective/syncprogress/pkg/progress"
)

type fakePhaseCallback struct {
	processedItems int
	processedBytes int64
	totalItems     int
	totalBytes     int64
	statuses       []string
	respondWith    progress.Response
}

func (f *fakePhaseCallback) UpdateDataProcessed(items int, bytes int64) {
	f.processedItems += items
	f.processedBytes += bytes
}

func (f *fakePhaseCallback) UpdateDataTotal(items int, bytes int64) {
	f.totalItems += items
	f.totalBytes += bytes
}

func (f *fakePhaseCallback) UpdateStatus(text string) error {
	f.statuses = append(f.statuses, text)
	return nil
}

func (f *fakePhaseCallback) LogInfo(text string) error { return nil }

func (f *fakePhaseCallback) ReportError(info progress.ErrorInfo) (progress.Response, error) {
	return f.respondWith, nil
}

func TestPhaseCallbackDecorateForwardsAndRecords(t *testing.T) {
	// NewCollector registers against the global Prometheus registry, which
	// panics on duplicate registration across test runs in the same
	// process; each test in this file therefore shares one collector.
	c := sharedCollector(t)
	fake := &fakePhaseCallback{respondWith: progress.ResponseRetry}
	d := Decorate(fake, c)

	d.UpdateDataProcessed(2, 200)
	require.Equal(t, 2, fake.processedItems)
	require.EqualValues(t, 200, fake.processedBytes)

	d.UpdateDataTotal(5, 500)
	require.Equal(t, 5, fake.totalItems)

	err := d.UpdateStatus("scanning")
	require.NoError(t, err)
	assert.Contains(t, fake.statuses, "scanning")

	resp, err := d.ReportError(progress.ErrorInfo{Message: "boom"})
	require.NoError(t, err)
	assert.Equal(t, progress.ResponseRetry, resp)
}

var testCollector *Collector

func sharedCollector(t *testing.T) *Collector {
	t.Helper()
	if testCollector == nil {
		testCollector = NewCollector()
	}
	return testCollector
}
