package progress

import (
	"fmt"
	"time"

	catrate "github.com/joeycumines/go-catrate"
)

// Percent-reporter tuning constants from spec.md §4.5. The defaults are
// load-bearing for the UX, not arbitrary: DelayBeforeShowingPercent avoids
// a flicker of "0%" on tiny transfers, MinRemainingDuration suppresses the
// percent entirely when it wouldn't stay on screen long enough to be
// useful, and SpeedWindow bounds how much the throughput estimate reacts
// to a single slow or fast chunk.
const (
	DelayBeforeShowingPercent = 2 * time.Second
	MinRemainingDuration      = 3 * time.Second
	MinChangesPerSecond       = 2
	SpeedWindow               = 10 * time.Second
	uiRefreshInterval         = 50 * time.Millisecond
)

// PercentReporter wraps an ItemStatReporter for a single
// (itemsExpected=1, bytesExpected) work item and produces a debounced,
// hysteretic "NN.N% — throughput" status string. It decides *whether* to
// show a percentage at all: on tiny or unknown-duration transfers it
// never latches, avoiding a flickering or precision-unstable display.
type PercentReporter struct {
	item          *ItemStatReporter
	cb            *AsyncCallback
	ts            *ThreadStatus
	bytesExpected int64
	bytesCopied   int64

	startTime   time.Time
	showPercent bool
	suppressed  bool

	speed   *speedWindow
	refresh *catrate.Limiter
}

// NewPercentReporter prepares a percent reporter for one item of the
// given expected byte size, reporting status through ts.
func NewPercentReporter(cb *AsyncCallback, ts *ThreadStatus, bytesExpected int64) *PercentReporter {
	return &PercentReporter{
		item:          NewItemStatReporter(cb, 1, bytesExpected),
		cb:            cb,
		ts:            ts,
		bytesExpected: bytesExpected,
		speed:         newSpeedWindow(SpeedWindow),
		refresh:       catrate.NewLimiter(map[time.Duration]int{uiRefreshInterval: 1}),
	}
}

// Succeed marks the underlying ItemStatReporter scope as successful; see
// ItemStatReporter.Succeed.
func (p *PercentReporter) Succeed() {
	p.item.Succeed()
}

// Close reconciles totals via the underlying ItemStatReporter; see
// ItemStatReporter.Close. Typically deferred immediately after
// construction.
func (p *PercentReporter) Close() {
	p.item.Close()
}

// ReportDelta forwards bytes to the underlying ItemStatReporter, then —
// gated by a UI-refresh rate limit — updates the hysteretic percent
// display.
func (p *PercentReporter) ReportDelta(bytes int64) {
	p.item.ReportDelta(0, bytes)
	p.bytesCopied += bytes

	now := time.Now()
	if _, ok := p.refresh.Allow("refresh"); !ok {
		return
	}
	if p.suppressed {
		return
	}

	if !p.showPercent {
		p.warmUp(now)
		return
	}

	p.speed.sample(now, p.bytesCopied)
	p.render()
}

// warmUp handles the not-yet-showing-percent state machine: seed the
// speed estimator on the first nonzero byte, and once DelayBeforeShowingPercent
// has elapsed, decide whether to latch show_percent (remaining time is
// comfortably long) or suppress permanently (it is not).
func (p *PercentReporter) warmUp(now time.Time) {
	if p.bytesCopied > 0 && p.startTime.IsZero() {
		p.startTime = now
		p.speed.reset()
		p.speed.sample(now, 0)
		return
	}
	if p.startTime.IsZero() || now.Sub(p.startTime) < DelayBeforeShowingPercent {
		return
	}

	p.speed.sample(now, p.bytesCopied)
	remaining, ok := p.speed.estimateRemaining(p.bytesExpected - p.bytesCopied)
	if !ok {
		return
	}
	if remaining < MinRemainingDuration {
		p.suppressed = true
		return
	}
	p.showPercent = true
	p.speed.reset() // discard warm-up noise
}

func (p *PercentReporter) render() {
	frac := 1.0
	if p.bytesExpected > 0 {
		frac = float64(p.bytesCopied) / float64(p.bytesExpected)
		if frac > 1.0 {
			frac = 1.0
		}
	}

	bps := p.speed.bytesPerSecond()
	precision := 0
	if bps > 0 {
		expectedSteps := float64(p.bytesExpected) / bps * MinChangesPerSecond
		precision = choosePrecision(int64(expectedSteps))
	}
	msg := fmt.Sprintf("%.*f%% — %s/s", precision, frac*100, formatThroughput(bps))
	p.cb.registry.updateStatus(p.ts, msg)
}

// choosePrecision picks decimal precision so that, at the rates spec.md
// §4.5 anticipates, the displayed percent changes at least
// MinChangesPerSecond times per second: 0 decimals up to 100 expected
// steps, 1 up to 1000, 2 up to 10000, else 3. expectedSteps is the
// transfer's expected duration in seconds at the current throughput times
// MinChangesPerSecond.
func choosePrecision(expectedSteps int64) int {
	switch {
	case expectedSteps <= 100:
		return 0
	case expectedSteps <= 1000:
		return 1
	case expectedSteps <= 10000:
		return 2
	default:
		return 3
	}
}

func formatThroughput(bytesPerSecond float64) string {
	const unit = 1024.0
	if bytesPerSecond < unit {
		return fmt.Sprintf("%.0f B", bytesPerSecond)
	}
	div, exp := unit, 0
	for n := bytesPerSecond / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	return fmt.Sprintf("%.1f %ciB", bytesPerSecond/div, units[exp])
}

// speedWindow is a sliding window of (time, cumulative-bytes) samples
// used to estimate bytes/sec and remaining-seconds. It is a minimal,
// slice-based analogue of catrate's internal ring buffer: that type is
// unexported and models boolean per-category rate limiting rather than a
// numeric throughput series, so it cannot be reused directly here.
type speedWindow struct {
	window  time.Duration
	samples []speedSample
}

type speedSample struct {
	t     time.Time
	bytes int64
}

func newSpeedWindow(window time.Duration) *speedWindow {
	return &speedWindow{window: window}
}

func (w *speedWindow) reset() {
	w.samples = w.samples[:0]
}

func (w *speedWindow) sample(t time.Time, bytes int64) {
	w.samples = append(w.samples, speedSample{t: t, bytes: bytes})
	cutoff := t.Add(-w.window)
	i := 0
	for i < len(w.samples)-1 && w.samples[i].t.Before(cutoff) {
		i++
	}
	w.samples = w.samples[i:]
}

func (w *speedWindow) bytesPerSecond() float64 {
	if len(w.samples) < 2 {
		return 0
	}
	first, last := w.samples[0], w.samples[len(w.samples)-1]
	dt := last.t.Sub(first.t).Seconds()
	if dt <= 0 {
		return 0
	}
	return float64(last.bytes-first.bytes) / dt
}

// estimateRemaining returns the estimated time to transfer remainingBytes
// at the current window's throughput. ok is false if throughput cannot yet
// be estimated (fewer than two samples, or zero/negative rate).
func (w *speedWindow) estimateRemaining(remainingBytes int64) (time.Duration, bool) {
	bps := w.bytesPerSecond()
	if bps <= 0 {
		return 0, false
	}
	secs := float64(remainingBytes) / bps
	if secs < 0 {
		secs = 0
	}
	return time.Duration(secs * float64(time.Second)), true
}
