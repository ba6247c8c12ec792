package quotagate

import "time"

// WindowKind selects one of the two quota windows tracked per tier.
type WindowKind int

const (
	WindowShort WindowKind = iota
	WindowLong
)

func (k WindowKind) String() string {
	switch k {
	case WindowShort:
		return "short"
	case WindowLong:
		return "long"
	default:
		return "unknown"
	}
}

// tierWindow is a fixed-start usage counter. Resets are lazy: the window is
// normalized against the clock on every read, never by a background timer.
type tierWindow struct {
	used  int64
	start time.Time
}

// normalize resets the counter if the window has elapsed.
func (w *tierWindow) normalize(now time.Time, length time.Duration) {
	if w.start.IsZero() || now.Sub(w.start) >= length {
		w.used = 0
		w.start = now
	}
}

// resetIn returns the time until the window elapses, or zero if it already has.
func (w *tierWindow) resetIn(now time.Time, length time.Duration) time.Duration {
	if w.start.IsZero() {
		return 0
	}
	remaining := length - now.Sub(w.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *Tier) window(kind WindowKind) (*tierWindow, int64, time.Duration) {
	if kind == WindowLong {
		return &t.long, t.LongCeiling, t.LongWindow
	}
	return &t.short, t.ShortCeiling, t.ShortWindow
}

// headroom returns the remaining capacity in the given window after
// normalizing it against now.
func (t *Tier) headroom(kind WindowKind, now time.Time) int64 {
	w, ceiling, length := t.window(kind)
	w.normalize(now, length)
	return ceiling - w.used
}

// consume charges amount against the given window. Callers must have checked
// headroom first; the gate's lock guarantees the check-then-act ordering.
func (t *Tier) consume(kind WindowKind, amount int64, now time.Time) {
	w, _, length := t.window(kind)
	w.normalize(now, length)
	w.used += amount
}

// refund returns unused capacity to both windows, never below zero.
func (t *Tier) refund(amount int64, now time.Time) {
	for _, kind := range []WindowKind{WindowShort, WindowLong} {
		w, _, length := t.window(kind)
		w.normalize(now, length)
		w.used -= amount
		if w.used < 0 {
			w.used = 0
		}
	}
}

// zeroShort burns the remaining short-window headroom. Used when the remote
// service reports a rate limit: the external signal is authoritative over the
// internal estimate.
func (t *Tier) zeroShort(now time.Time) {
	t.short.normalize(now, t.ShortWindow)
	t.short.used = t.ShortCeiling
}

// maxBlock is the largest block this tier could ever admit, regardless of
// current usage.
func (t *Tier) maxBlock() int64 {
	if t.ShortCeiling < t.LongCeiling {
		return t.ShortCeiling
	}
	return t.LongCeiling
}

// clearIn returns how long until this tier could admit a block of the given
// size again, assuming no further consumption: the latest reset among the
// windows currently blocking it.
func (t *Tier) clearIn(blockSize int64, now time.Time) time.Duration {
	var wait time.Duration
	for _, kind := range []WindowKind{WindowShort, WindowLong} {
		w, ceiling, length := t.window(kind)
		w.normalize(now, length)
		if ceiling-w.used < blockSize {
			if r := w.resetIn(now, length); r > wait {
				wait = r
			}
		}
	}
	return wait
}
