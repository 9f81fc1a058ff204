package progress

import "testing"

func TestItemStatReporterNormalExitExactMatch(t *testing.T) {
	cb := NewAsyncCallback(nil)
	r := NewItemStatReporter(cb, 1, 100)
	r.ReportDelta(1, 100)
	r.Succeed()
	r.Close()

	_, _, totalItems, totalBytes := cb.stats.drain()
	if totalItems != 0 || totalBytes != 0 {
		t.Fatalf("total delta = (%d, %d), want (0, 0) for an exact match", totalItems, totalBytes)
	}
}

// TestItemStatReporterOvershootClampedThenNettedToZero mirrors spec
// scenario S5: bytes_expected=100, the item actually reports 120 bytes.
// ReportDelta clamps the local accumulator at 100 and folds the 20-byte
// excess into update_data_total immediately; on a successful Close the
// total is corrected by (reported-expected)=0, so the net change to the
// total across the whole scope is exactly the 20 bytes already added. The
// item itself is never reported, so Close also corrects the item total by
// (0-1) = -1.
func TestItemStatReporterOvershootClampedThenNettedToZero(t *testing.T) {
	cb := NewAsyncCallback(nil)
	r := NewItemStatReporter(cb, 1, 100)
	r.ReportDelta(0, 120)
	r.Succeed()
	r.Close()

	_, _, totalItems, totalBytes := cb.stats.drain()
	if totalItems != -1 || totalBytes != 20 {
		t.Fatalf("total delta = (%d, %d), want (-1, 20)", totalItems, totalBytes)
	}
}

func TestItemStatReporterAbnormalExitAddsReportedOnTopOfExpected(t *testing.T) {
	cb := NewAsyncCallback(nil)
	r := NewItemStatReporter(cb, 1, 100)
	r.ReportDelta(0, 40)
	r.Close() // no Succeed: abnormal exit

	_, _, totalItems, totalBytes := cb.stats.drain()
	if totalItems != 0 || totalBytes != 40 {
		t.Fatalf("total delta = (%d, %d), want (0, 40)", totalItems, totalBytes)
	}
}

func TestItemStatReporterUnderrunShrinksTotal(t *testing.T) {
	cb := NewAsyncCallback(nil)
	r := NewItemStatReporter(cb, 1, 100)
	r.ReportDelta(0, 60)
	r.Succeed()
	r.Close()

	_, _, _, totalBytes := cb.stats.drain()
	if totalBytes != -40 {
		t.Fatalf("total byte delta = %d, want -40 for a smaller-than-estimated file", totalBytes)
	}
}

func TestItemStatReporterCloseIsIdempotent(t *testing.T) {
	cb := NewAsyncCallback(nil)
	r := NewItemStatReporter(cb, 1, 100)
	r.ReportDelta(0, 100)
	r.Succeed()
	r.Close()
	r.Close() // must not double-count

	_, _, _, totalBytes := cb.stats.drain()
	if totalBytes != 0 {
		t.Fatalf("total byte delta after double Close = %d, want 0", totalBytes)
	}
}

func TestItemStatReporterForwardsProcessedDeltas(t *testing.T) {
	cb := NewAsyncCallback(nil)
	r := NewItemStatReporter(cb, 1, 100)
	r.ReportDelta(0, 50)
	r.ReportDelta(0, 50)

	items, bytes, _, _ := cb.stats.drain()
	if items != 0 || bytes != 100 {
		t.Fatalf("processed = (%d, %d), want (0, 100)", items, bytes)
	}
}
