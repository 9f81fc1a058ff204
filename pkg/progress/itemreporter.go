package progress

// ItemStatReporter is the scoped, per-work-item reconciliation rule of
// spec.md §4.4. Construction captures the expected items/bytes for one
// work item; ReportDelta forwards actual progress while keeping the
// reported total clamped at the expected value (excess is folded into
// update_data_total so the UI fraction never exceeds 100% from
// over-reporting). On scope exit (normally a deferred Close), the total
// is corrected depending on whether the scope's work succeeded.
//
// Design Notes §9 replaces the source's "uncaught-exception depth" proxy
// for "did this scope exit abnormally?" with an explicit scope guard: it
// defaults to the failure branch and Succeed must be called at the end of
// the happy path.
type ItemStatReporter struct {
	cb            *AsyncCallback
	itemsExpected int
	bytesExpected int64
	itemsReported int
	bytesReported int64
	success       bool
	closed        bool
}

// NewItemStatReporter captures the expected workload for one item.
func NewItemStatReporter(cb *AsyncCallback, itemsExpected int, bytesExpected int64) *ItemStatReporter {
	return &ItemStatReporter{
		cb:            cb,
		itemsExpected: itemsExpected,
		bytesExpected: bytesExpected,
	}
}

// ReportDelta forwards (items, bytes) to update_data_processed and
// accumulates the running total for this item. If the accumulated total
// exceeds what was expected, the excess is also added to
// update_data_total (growing the workload estimate) and the local
// accumulator is clamped at the expected value.
func (r *ItemStatReporter) ReportDelta(items int, bytes int64) {
	r.cb.UpdateDataProcessed(items, bytes)

	r.itemsReported += items
	if r.itemsReported > r.itemsExpected {
		excess := r.itemsReported - r.itemsExpected
		r.cb.UpdateDataTotal(excess, 0)
		r.itemsReported = r.itemsExpected
	}

	r.bytesReported += bytes
	if r.bytesReported > r.bytesExpected {
		excess := r.bytesReported - r.bytesExpected
		r.cb.UpdateDataTotal(0, excess)
		r.bytesReported = r.bytesExpected
	}
}

// Succeed marks the scope as having completed its happy path. Call it as
// the last statement before the function returns; Close (typically
// deferred immediately after construction) reads this flag to decide
// which reconciliation branch to take.
func (r *ItemStatReporter) Succeed() {
	r.success = true
}

// Close reconciles the total estimate against what was actually reported.
// On a normal exit (Succeed was called) the total is corrected by
// (reported - expected) for both items and bytes — which may be negative,
// shrinking the total for a smaller-than-estimated file. On an abnormal
// exit the total is increased by the reported amount on top of the
// expected value already baked into it, so the failed item's attempted
// work stays visible as added workload. Close is idempotent.
func (r *ItemStatReporter) Close() {
	if r.closed {
		return
	}
	r.closed = true

	if r.success {
		r.cb.UpdateDataTotal(r.itemsReported-r.itemsExpected, r.bytesReported-r.bytesExpected)
		return
	}
	r.cb.UpdateDataTotal(r.itemsReported, r.bytesReported)
}
