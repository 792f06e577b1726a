package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/viz"
)

// LineRenderer prints one status line per step, at most rate lines per
// second. It is meant for logs and non-interactive terminals.
type LineRenderer struct {
	w         io.Writer
	metrics   []sim.Metric
	interval  time.Duration
	lastFrame time.Time
	now       func() time.Time
}

// NewLineRenderer throttles output to rate lines per second. A rate of zero
// or less prints every step.
func NewLineRenderer(w io.Writer, metrics []sim.Metric, rate int) *LineRenderer {
	var interval time.Duration
	if rate > 0 {
		interval = time.Second / time.Duration(rate)
	}
	return &LineRenderer{
		w:        w,
		metrics:  metrics,
		interval: interval,
		now:      time.Now,
	}
}

func (r *LineRenderer) OnStep(step int, ps []physics.Particle) {
	now := r.now()
	if r.interval > 0 && now.Sub(r.lastFrame) < r.interval {
		return
	}
	r.lastFrame = now

	var b strings.Builder
	b.WriteString(fmt.Sprintf("step %6d  n=%d", step, len(ps)))
	for _, m := range r.metrics {
		b.WriteString(fmt.Sprintf("  %s=%s", m.Name(), viz.FormatValue(m.Last())))
	}
	b.WriteString("\n")
	fmt.Fprint(r.w, b.String())
}
