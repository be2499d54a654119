// Command flashbench runs the chip-identification and performance-report
// engine over a results log and a vendor datasheet catalogue, emitting the
// pivoted report on stdout or to a file.
package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ja7ad/flashbench/pkg/catalogue"
	"github.com/ja7ad/flashbench/pkg/engine"
	"github.com/ja7ad/flashbench/pkg/flashbenchcfg"
	"github.com/ja7ad/flashbench/pkg/types"
)

type opts struct {
	resultsPath   string
	cataloguePath string
	outPath       string
	configPath    string
	htmlPath      string

	jedec         string
	sckMHz        float64
	capacityBytes uint64

	pretty bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "flashbench",
		Short: "SPI flash chip-identification and performance report generator",
		Long: `flashbench cross-references benchmarked read/program/erase samples against
a vendor datasheet catalogue to defend a best-guess chip identity and
render a pivoted performance report.

* GitHub: https://github.com/ja7ad/flashbench

Examples:
  flashbench --results results.csv --catalogue datasheet.csv
  flashbench --results results.csv --catalogue datasheet.csv --jedec 0xBF2641 --sck-mhz 10 --pretty`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().StringVar(&o.resultsPath, "results", "", "path to the benchmark results log (absent = no samples)")
	root.Flags().StringVar(&o.cataloguePath, "catalogue", "", "path to the vendor datasheet catalogue (absent = no catalogue)")
	root.Flags().StringVar(&o.outPath, "out", "", "path to write the report (default: stdout)")
	root.Flags().StringVar(&o.configPath, "config", "", "optional YAML file of device-context and path defaults")
	root.Flags().StringVar(&o.htmlPath, "html", "", "optional path to also render the report as HTML")

	root.Flags().StringVar(&o.jedec, "jedec", "", "observed JEDEC ID, if known (e.g. 0xBF2641)")
	root.Flags().Float64Var(&o.sckMHz, "sck-mhz", 0, "observed SPI clock rate in MHz, if known")
	root.Flags().Uint64Var(&o.capacityBytes, "capacity-bytes", 0, "observed device capacity in bytes, if known")

	root.Flags().BoolVar(&o.pretty, "pretty", false, "also print a human-readable table to stderr")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := flashbenchcfg.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	device := cfg.DeviceContext()
	if o.resultsPath == "" {
		o.resultsPath = cfg.Paths.Results
	}
	if o.cataloguePath == "" {
		o.cataloguePath = cfg.Paths.Catalogue
	}
	if o.outPath == "" {
		o.outPath = cfg.Paths.Out
	}
	if o.jedec != "" {
		device.JEDEC = catalogue.NormaliseJEDEC(o.jedec)
	}
	if o.sckMHz > 0 {
		device.SCKMHz = o.sckMHz
	}
	if o.capacityBytes > 0 {
		device.CapacityBytes = o.capacityBytes
	}

	resultsReader, resultsFile, err := openInput(o.resultsPath)
	if err != nil {
		return fmt.Errorf("open results: %w", err)
	}
	if resultsFile != nil {
		defer resultsFile.Close()
	}

	catalogueReader, catalogueFile, err := openInput(o.cataloguePath)
	if err != nil {
		return fmt.Errorf("open catalogue: %w", err)
	}
	if catalogueFile != nil {
		defer catalogueFile.Close()
	}

	var buf bytes.Buffer
	if err := engine.GenerateReport(ctx, resultsReader, catalogueReader, device, &buf); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if err := writeOutput(o.outPath, buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if o.pretty {
		printPretty(os.Stderr, buf.String())
	}

	if o.htmlPath != "" {
		if err := writeHTML(o.htmlPath, buf.String()); err != nil {
			return fmt.Errorf("write html: %w", err)
		}
	}

	return nil
}

// openInput resolves a --results/--catalogue path: "-" reads stdin, ""
// leaves the stream absent (the engine treats a missing input as having no
// samples/catalogue rather than an error), and anything else
// opens the named file. The returned *os.File is non-nil only when the
// caller owns a handle it must Close (a real file, not stdin).
func openInput(path string) (io.Reader, *os.File, error) {
	switch path {
	case "":
		return nil, nil, nil
	case "-":
		return os.Stdin, nil, nil
	default:
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// printPretty renders the already-generated report as an aligned table,
// one line per four-field report row; the header row and the final-guess
// block are skipped. The capacity_bytes row is annotated with a
// human-readable unit alongside its raw byte count.
func printPretty(w *os.File, report string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tREAD\tWRITE\tERASE")
	fmt.Fprintln(tw, "-----\t----\t-----\t-----")
	for _, line := range splitLines(report) {
		fields := splitCSVLine(line)
		if len(fields) != 4 || fields[0] == "title" {
			continue
		}
		if fields[0] == "capacity_bytes" {
			fields = humanizeCapacityRow(fields)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", fields[0], fields[1], fields[2], fields[3])
	}
	tw.Flush()
}

// humanizeCapacityRow appends a parenthesized human-readable size to each
// present cell of the capacity_bytes row, leaving NA cells untouched.
func humanizeCapacityRow(fields []string) []string {
	out := append([]string(nil), fields...)
	for i := 1; i < len(out); i++ {
		out[i] = types.FormatCapacityCell(out[i])
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func splitCSVLine(line string) []string {
	if line == "" {
		return nil
	}
	var fields []string
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] == ',' {
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	fields = append(fields, line[start:])
	return fields
}

func writeHTML(path, report string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	type view struct {
		Rows [][]string
	}
	var data view
	for _, line := range splitLines(report) {
		fields := splitCSVLine(line)
		if len(fields) != 4 || fields[0] == "title" {
			continue
		}
		if fields[0] == "capacity_bytes" {
			fields = humanizeCapacityRow(fields)
		}
		data.Rows = append(data.Rows, fields)
	}

	return reportTpl.Execute(f, data)
}

var reportTpl = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>flashbench report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
</style>
<h1>flashbench report</h1>
<table>
<thead><tr><th>title</th><th>read</th><th>write</th><th>erase</th></tr></thead>
<tbody>
{{range .Rows}}
<tr><td style="text-align:left">{{index . 0}}</td><td>{{index . 1}}</td><td>{{index . 2}}</td><td>{{index . 3}}</td></tr>
{{end}}
</tbody>
</table>
</html>`))
