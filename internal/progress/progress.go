// Package progress renders domain.ProgressEvent updates to plain stdout
// lines, matching the teacher's preference for direct fmt output over a
// logging framework. It's the default renderer; internal/progresstui
// offers a richer live view behind --tui.
package progress

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"nexusbridge/internal/domain"
)

// StdoutReporter prints each event on its own line, throttled so a fast
// download doesn't flood the terminal with a line per chunk.
type StdoutReporter struct {
	mu      sync.Mutex
	lastKey string
	lastPct int
}

// NewStdoutReporter returns a reporter ready to use as a domain.ProgressFunc.
func NewStdoutReporter() *StdoutReporter {
	return &StdoutReporter{}
}

// Report implements domain.ProgressFunc.
func (r *StdoutReporter) Report(e domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s:%s", e.Phase, e.ModName)

	if e.Err != nil {
		fmt.Printf("[%s] %s: %v\n", phaseLabel(e.Phase), e.ModName, e.Err)
		return
	}

	if e.Done {
		fmt.Printf("[%s] %s done (%d/%d)\n", phaseLabel(e.Phase), e.ModName, e.Current, e.Total)
		r.lastKey = ""
		return
	}

	if e.TotalBytes > 0 {
		pct := int(float64(e.Bytes) / float64(e.TotalBytes) * 100)
		// Only print every 10% for the same mod, so progress doesn't spam.
		if key == r.lastKey && pct-r.lastPct < 10 {
			return
		}
		r.lastKey = key
		r.lastPct = pct
		fmt.Printf("[%s] %s: %s / %s (%d%%)\n", phaseLabel(e.Phase), e.ModName,
			humanize.Bytes(uint64(e.Bytes)), humanize.Bytes(uint64(e.TotalBytes)), pct)
		return
	}

	if key == r.lastKey {
		return
	}
	r.lastKey = key
	fmt.Printf("[%s] %s (%d/%d)\n", phaseLabel(e.Phase), e.ModName, e.Current, e.Total)
}

func phaseLabel(p domain.Phase) string {
	switch p {
	case domain.PhaseScan:
		return "scan"
	case domain.PhaseDownload:
		return "download"
	case domain.PhaseInstall:
		return "install"
	case domain.PhaseSort:
		return "sort"
	default:
		return "run"
	}
}
