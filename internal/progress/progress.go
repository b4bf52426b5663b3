// Package progress reports pipeline progress to the user.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

const updateInterval = 50 * time.Millisecond

// Sink is the minimal progress contract a Pipeline drives: Start once with
// the unit count, Update any number of times with a (possibly
// non-monotonic, concurrently produced) running count, Finish once.
type Sink interface {
	Start(total int64)
	Update(count int64)
	Finish()
}

// Bar adapts schollz/progressbar/v3 to Sink. All methods are no-ops when
// disabled, so callers never need to branch on quiet mode themselves.
type Bar struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

// New creates a Bar. When enabled is false every method is a no-op.
func New(enabled bool) *Bar {
	return &Bar{enabled: enabled}
}

// Start begins reporting against total units of work. Pass a negative total
// for indeterminate (spinner) mode, e.g. while the exact candidate count is
// still unknown.
func (b *Bar) Start(total int64) {
	if !b.enabled {
		return
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(false),
		)
		b.bar = progressbar.NewOptions(-1, opts...)
		return
	}

	opts = append(opts, progressbar.OptionSetWidth(40))
	b.bar = progressbar.NewOptions64(total, opts...)
}

// Update sets the running count. The Pipeline's hashing stages update this
// concurrently from multiple workers; values may arrive out of order, which
// progressbar tolerates by simply displaying the latest Set64 call.
func (b *Bar) Update(count int64) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Set64(count)
}

// Describe updates the bar's label. Not part of the minimal Sink contract,
// but useful for callers (e.g. the CLI) that want to show which stage is
// running.
func (b *Bar) Describe(s fmt.Stringer) {
	if b.bar != nil {
		b.bar.Describe(s.String())
	}
}

// Finish completes the bar.
func (b *Bar) Finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	fmt.Fprintln(os.Stderr, "✔ scan complete")
}
