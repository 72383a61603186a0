package harness

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Format selects how the report is written.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want %q or %q)", s, FormatTable, FormatCSV)
}

var banner = strings.Repeat("=", 80)

// columnWidths are the fixed widths of the compile table columns. Rows are
// rendered one at a time, so the widths cannot be derived from the data.
var columnWidths = []int{35, 12, 10, 8}

var compileHeader = []string{"Case", "Mean (ms)", "Std", "Rules"}

// reporter writes the human-readable or CSV report as the run progresses.
type reporter struct {
	w      io.Writer
	format Format

	csv            *csv.Writer
	matchCSVHeader bool
}

func newReporter(w io.Writer, format Format) *reporter {
	return &reporter{w: w, format: format, csv: csv.NewWriter(w)}
}

func (p *reporter) section(title string) {
	if p.format != FormatTable {
		return
	}
	fmt.Fprintln(p.w, banner)
	fmt.Fprintln(p.w, title)
	fmt.Fprintln(p.w, banner)
}

// compileStart writes everything that precedes the first compile row.
func (p *reporter) compileStart() error {
	if p.format == FormatCSV {
		return p.writeCSV("label", "mean_ms", "min_ms", "max_ms", "rules")
	}
	p.section("REGEX EXCLUDES BENCHMARK - COMPILE TIME")
	table := p.table()
	table.SetHeader(compileHeader)
	table.Render()
	fmt.Fprintln(p.w, strings.Repeat("-", 80))
	return nil
}

// compileRow writes the row of a finished compile case.
func (p *reporter) compileRow(r CompileResult) error {
	if p.format == FormatCSV {
		return p.writeCSV(r.Case.Label, ms(r.Stat.MeanMs), ms(r.Stat.MinMs), ms(r.Stat.MaxMs),
			strconv.Itoa(r.Stat.Rules))
	}
	table := p.table()
	table.Append([]string{r.Case.Label, ms(r.Stat.MeanMs), ms(r.Stat.StdMs), strconv.Itoa(r.Stat.Rules)})
	table.Render()
	return nil
}

func (p *reporter) compileEnd() {
	if p.format == FormatTable {
		fmt.Fprintln(p.w, banner)
	}
}

func (p *reporter) ratios(ratios []Ratio) {
	if p.format != FormatTable || len(ratios) == 0 {
		return
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "Relative to baseline:")
	for _, r := range ratios[1:] {
		fmt.Fprintf(p.w, "  %s: %.1fx slower\n", r.Label, r.Value)
	}
}

func (p *reporter) matchHeader() {
	if p.format != FormatTable {
		return
	}
	fmt.Fprintln(p.w)
	p.section("MATCHING PERFORMANCE (avg us per char)")
}

func (p *reporter) matchResult(r MatchResult) {
	if p.format == FormatCSV {
		if !p.matchCSVHeader {
			p.matchCSVHeader = true
			fmt.Fprintln(p.w)
			_ = p.writeCSV("label", "us_per_char")
		}
		_ = p.writeCSV(r.Case.Label, strconv.FormatFloat(float64(r.Stat), 'f', 3, 64))
		return
	}
	fmt.Fprintf(p.w, "  %s: %.1f us/char\n", r.Case.Label, float64(r.Stat))
}

func (p *reporter) matchSkipped(reason string) {
	if p.format == FormatCSV {
		fmt.Fprintf(p.w, "# matching skipped: %s\n", reason)
		return
	}
	fmt.Fprintf(p.w, "  Matching benchmark skipped: %s\n", reason)
}

// table returns a borderless tablewriter with the fixed compile columns.
func (p *reporter) table() *tablewriter.Table {
	table := tablewriter.NewWriter(p.w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding(" ")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for i, w := range columnWidths {
		table.SetColMinWidth(i, w)
	}
	return table
}

// writeCSV writes and flushes one record so rows appear as cases finish.
func (p *reporter) writeCSV(record ...string) error {
	if err := p.csv.Write(record); err != nil {
		return err
	}
	p.csv.Flush()
	return p.csv.Error()
}

func ms(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
