package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ConsoleReporter renders session tables to a writer (stdout by default)
type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// PrintStartup renders the trader configuration at boot
func (r *ConsoleReporter) PrintStartup(report *SessionReport, interval string, leverageCap int) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("TRADER INITIALIZATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", report.Symbol},
		{"⏰ Interval", interval},
		{"🏪 Exchange", report.Exchange},
		{"🔧 Environment", report.Environment},
		{"🎯 Strategy", report.ActiveStrategy},
		{"💰 Balance", fmt.Sprintf("$%.2f", report.InitialBalance)},
		{"⚖️ Max Leverage", fmt.Sprintf("%dx", leverageCap)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, WidthMax: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintSession renders the periodic session summary with one row per
// strategy that has traded.
func (r *ConsoleReporter) PrintSession(report *SessionReport) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("SESSION REPORT — %s", report.Symbol))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🎯 Active Strategy", report.ActiveStrategy},
		{"💰 Capital", fmt.Sprintf("$%.2f", report.Capital)},
		{"📈 Session Return", fmt.Sprintf("%.2f%%", report.TotalReturn()*100)},
		{"📅 Daily Realized", fmt.Sprintf("$%.2f", report.DailyRealized)},
		{"🔄 Trades", len(report.Trades)},
		{"🔀 Strategy Switches", len(report.Switches)},
	})
	t.Render()
	fmt.Fprintln(r.out)

	if len(report.StrategyRecords) == 0 {
		return
	}

	st := table.NewWriter()
	st.SetOutputMirror(r.out)
	st.SetTitle("STRATEGY PERFORMANCE")
	st.SetStyle(table.StyleRounded)
	st.AppendHeader(table.Row{"Strategy", "Trades", "Win Rate", "PnL", "Profit Factor", "Max Streak Loss"})

	for _, record := range report.StrategyRecords {
		if record.TotalTrades == 0 {
			continue
		}
		st.AppendRow(table.Row{
			record.Strategy,
			record.TotalTrades,
			fmt.Sprintf("%.1f%%", record.WinRate()*100),
			fmt.Sprintf("$%.2f", record.TotalPnL),
			fmt.Sprintf("%.2f", record.ProfitFactor()),
			record.MaxConsecutiveLosses,
		})
	}

	st.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})
	st.Render()
	fmt.Fprintln(r.out)
}
