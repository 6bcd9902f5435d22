package app

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/specialistvlad/modgrid/internal/module"
	"github.com/specialistvlad/modgrid/internal/runtime"
)

// printSummary renders the final state of every module. JSON log output gets
// a single log line instead.
func (a *App) printSummary(statuses []runtime.Status) {
	counts := make(map[string]int)
	for _, s := range statuses {
		counts[s.State]++
	}

	if a.config.LogFormat == LogFormatJSON {
		a.logger.Info("Module summary.",
			"total", len(statuses),
			module.Processed.String(), counts[module.Processed.String()],
			module.Error.String(), counts[module.Error.String()],
			module.Waiting.String(), counts[module.Waiting.String()],
			module.Unprocessed.String(), counts[module.Unprocessed.String()],
		)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.outW)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Module", "State", "Requires", "Source", "Error"})
	for _, s := range statuses {
		t.AppendRow(table.Row{s.Name, s.State, strings.Join(s.Requirements, ", "), s.Source, s.Error})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d modules", len(statuses)),
		fmt.Sprintf("%d processed", counts[module.Processed.String()]),
		"", "",
		fmt.Sprintf("%d failed", counts[module.Error.String()]),
	})
	t.Render()
}
