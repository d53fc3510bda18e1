// Package report renders filter runs for humans: console tables of toggle
// events and an HTML line chart comparing raw, reference and filtered
// series.
package report

import (
	"fmt"
	"io"

	"spiketrend/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Action returns the console label for a toggle.
func Action(tg model.Toggle) string {
	if tg.State {
		return "TURN ON"
	}
	return "TURN OFF"
}

// WriteToggles prints the toggle events of run as a table.
func WriteToggles(w io.Writer, run model.Run) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("toggle events: " + run.Series)
	tw.AppendHeader(table.Row{"#", "Index", "Action", "Value"})
	for i, tg := range run.Toggles {
		tw.AppendRow(table.Row{i + 1, tg.Index, Action(tg), fmt.Sprintf("%.4f", tg.Value)})
	}
	if len(run.Toggles) == 0 {
		tw.AppendRow(table.Row{"-", "-", "no toggles", "-"})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	tw.Render()
}

// WriteSummary prints the run parameters and outcome.
func WriteSummary(w io.Writer, run model.Run) {
	final := "OFF"
	if run.FinalState {
		final = "ON"
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("run " + run.ID)
	tw.AppendRows([]table.Row{
		{"series", run.Series},
		{"samples", len(run.Cleaned)},
		{"window", run.Window},
		{"threshold", run.Threshold},
		{"trend window", run.TrendWindow},
		{"trend threshold", run.TrendThreshold},
		{"replaced", run.Replaced},
		{"global mean", fmt.Sprintf("%.4f", run.GlobalMean)},
		{"toggles", len(run.Toggles)},
		{"final state", final},
		{"duration", run.Duration.String()},
	})
	tw.Render()
}
