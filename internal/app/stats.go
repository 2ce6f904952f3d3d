package app

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/roelfdiedericks/speechkit/internal/metrics"
)

// StatsCmd prints the job metrics recorded by previous runs.
type StatsCmd struct {
	Filter string `arg:"" optional:"" help:"Only show metrics whose path starts with this prefix (e.g. pipeline/transcribe)."`
}

func (c *StatsCmd) Run(env *Env) error {
	var rows []metrics.Snapshot
	for _, s := range metrics.GetInstance().GetSnapshot() {
		if strings.HasPrefix(s.Path, c.Filter) {
			rows = append(rows, s)
		}
	}
	if len(rows) == 0 {
		fmt.Println("No metrics recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tCOUNT\tAVG\tMIN\tMAX\tSUCCESS\tTOP FAILURE")
	for _, s := range rows {
		switch s.Type {
		case metrics.TypeTiming:
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\t\n", s.Path, humanize.Comma(s.Count),
				formatMs(s.AvgMs), formatMs(s.MinMs), formatMs(s.MaxMs))
		case metrics.TypeSuccessFail:
			fmt.Fprintf(w, "%s\t%s\t\t\t\t%.1f%%\t%s\n", s.Path, humanize.Comma(s.Success+s.Failures),
				s.SuccessRate, s.TopFailure)
		}
	}
	return w.Flush()
}

func formatMs(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.0fms", ms)
}
