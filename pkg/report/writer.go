// Package report renders the pivoted chip-identification summary: a
// fixed-schema textual table with three value columns (read, write,
// erase), NA for every absent cell, and a trailing final-guess block. It
// is the only component allowed to fail the overall run; everything
// upstream degrades to absent cells instead.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ja7ad/flashbench/pkg/model"
	"github.com/ja7ad/flashbench/pkg/results"
)

// Input is everything the writer needs to render one report: the device
// context, the per-bucket aggregates, the per-cell datasheet matches, the
// per-operation candidate intersections, and the final guess.
type Input struct {
	Device     model.DeviceContext
	Buckets    map[model.BucketKey]results.Bucket
	Matches    map[model.BucketKey]model.MatchResult
	Conclusion map[model.Operation][]string
	Final      model.FinalGuess
}

var notes = [3]string{
	"read: db_mean assumes the catalogue's 50MHz read throughput scaled linearly by observed SCK",
	"write: db_mean assumes 256B page programming granularity; WHOLE uses the observed device capacity",
	"erase: db_mean is only defined for 4K/32K/64K blocks; other groups have no datasheet reference",
}

// Generate writes the full report to w. The only error it can return is an
// underlying write failure, wrapped so callers can detect it with
// errors.Is against nothing in particular — the wrapped error itself is
// the signal.
func Generate(w io.Writer, in Input) error {
	bw := bufio.NewWriter(w)

	write := func(title, read, wr, erase string) error {
		_, err := fmt.Fprintf(bw, "%s,%s,%s,%s\n", title, read, wr, erase)
		return err
	}

	if err := write("title", "read", "write", "erase"); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}

	if err := writeIdentityRows(write, in.Final, in.Device); err != nil {
		return err
	}

	if err := write("units_summary", "ms", "ms", "ms"); err != nil {
		return fmt.Errorf("report: write units_summary: %w", err)
	}

	for _, g := range model.SizeGroups() {
		if err := writeStatsRows(write, g, in.Buckets); err != nil {
			return err
		}
	}

	for _, g := range model.SizeGroups() {
		if err := writeDBMeanRow(write, g, in.Matches); err != nil {
			return err
		}
	}

	for _, g := range model.SizeGroups() {
		if err := writePossibleChipsRow(write, g, in.Matches); err != nil {
			return err
		}
	}

	conclusionRead := fmtList(in.Conclusion[model.OpRead])
	conclusionWrite := fmtList(in.Conclusion[model.OpProgram])
	conclusionErase := fmtList(in.Conclusion[model.OpErase])
	if err := write("conclusion_possible_chips", conclusionRead, conclusionWrite, conclusionErase); err != nil {
		return fmt.Errorf("report: write conclusion_possible_chips: %w", err)
	}

	if err := write("notes", notes[0], notes[1], notes[2]); err != nil {
		return fmt.Errorf("report: write notes: %w", err)
	}

	if _, err := fmt.Fprint(bw, "\n"); err != nil {
		return fmt.Errorf("report: write blank separator: %w", err)
	}

	if _, err := fmt.Fprint(bw, "final_guess_jedec,final_guess_model,final_guess_company,final_score\n"); err != nil {
		return fmt.Errorf("report: write final header: %w", err)
	}

	scoreCell := na
	if in.Final.Score.Valid {
		scoreCell = fmtDefault(in.Final.Score.Value, true)
	}
	if _, err := fmt.Fprintf(bw, "%s,%s,%s,%s\n", fmtString(in.Final.JEDEC), fmtString(in.Final.ChipModel), fmtString(in.Final.Company), scoreCell); err != nil {
		return fmt.Errorf("report: write final row: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	return nil
}

type writeRowFunc func(title, read, wr, erase string) error

func writeIdentityRows(write writeRowFunc, final model.FinalGuess, device model.DeviceContext) error {
	jedecCell := fmtString(final.JEDEC)
	if err := write("detected_jedec", jedecCell, jedecCell, jedecCell); err != nil {
		return fmt.Errorf("report: write detected_jedec: %w", err)
	}

	modelCell := fmtString(final.ChipModel)
	if err := write("chip_model", modelCell, modelCell, modelCell); err != nil {
		return fmt.Errorf("report: write chip_model: %w", err)
	}

	familyCell := fmtString(final.Family)
	if err := write("chip_family", familyCell, familyCell, familyCell); err != nil {
		return fmt.Errorf("report: write chip_family: %w", err)
	}

	companyCell := fmtString(final.Company)
	if err := write("company", companyCell, companyCell, companyCell); err != nil {
		return fmt.Errorf("report: write company: %w", err)
	}

	mbitCell := fmtInt(final.CapacityMbit.Value, final.CapacityMbit.Valid)
	if err := write("capacity_mbit", mbitCell, mbitCell, mbitCell); err != nil {
		return fmt.Errorf("report: write capacity_mbit: %w", err)
	}

	capBytes, capOk := model.CapacityBytesFromMbit(final.CapacityMbit)
	bytesCell := fmtInt(float64(capBytes), capOk)
	if err := write("capacity_bytes", bytesCell, bytesCell, bytesCell); err != nil {
		return fmt.Errorf("report: write capacity_bytes: %w", err)
	}

	sckCell := fmtSCK(device.SCKMHz, device.HasSCK())
	if err := write("spi_sck_MHz", sckCell, sckCell, sckCell); err != nil {
		return fmt.Errorf("report: write spi_sck_MHz: %w", err)
	}

	return nil
}

func writeStatsRows(write writeRowFunc, g model.SizeGroup, buckets map[model.BucketKey]results.Bucket) error {
	cell := func(op model.Operation) results.Bucket {
		return buckets[model.BucketKey{Op: op, Group: g}]
	}

	read, wr, er := cell(model.OpRead), cell(model.OpProgram), cell(model.OpErase)
	suffix := g.ReportLabel()

	rows := []struct {
		title string
		get   func(b results.Bucket) string
	}{
		{"n_" + suffix, func(b results.Bucket) string { return fmtCount(b.N, b.N > 0) }},
		{"avg_" + suffix + "_ms", func(b results.Bucket) string { return fmtDefault(b.ElapsedMs.Mean, b.N > 0) }},
		{"p25_" + suffix + "_ms", func(b results.Bucket) string { return fmtDefault(b.ElapsedMs.P25, b.N > 0) }},
		{"p50_" + suffix + "_ms", func(b results.Bucket) string { return fmtDefault(b.ElapsedMs.P50, b.N > 0) }},
		{"p75_" + suffix + "_ms", func(b results.Bucket) string { return fmtDefault(b.ElapsedMs.P75, b.N > 0) }},
		{"min_" + suffix + "_ms", func(b results.Bucket) string { return fmtDefault(b.ElapsedMs.Min, b.N > 0) }},
		{"max_" + suffix + "_ms", func(b results.Bucket) string { return fmtDefault(b.ElapsedMs.Max, b.N > 0) }},
		{"stddev_" + suffix + "_ms", func(b results.Bucket) string { return fmtStdDev(b.ElapsedMs.StdDev, b.N > 0) }},
	}

	for _, row := range rows {
		if err := write(row.title, row.get(read), row.get(wr), row.get(er)); err != nil {
			return fmt.Errorf("report: write %s: %w", row.title, err)
		}
	}
	return nil
}

func writeDBMeanRow(write writeRowFunc, g model.SizeGroup, matches map[model.BucketKey]model.MatchResult) error {
	cell := func(op model.Operation) string {
		m := matches[model.BucketKey{Op: op, Group: g}]
		return fmtDefault(m.DBMean.Value, m.DBMean.Valid)
	}
	title := "db_mean_" + g.ReportLabel()
	if err := write(title, cell(model.OpRead), cell(model.OpProgram), cell(model.OpErase)); err != nil {
		return fmt.Errorf("report: write %s: %w", title, err)
	}
	return nil
}

func writePossibleChipsRow(write writeRowFunc, g model.SizeGroup, matches map[model.BucketKey]model.MatchResult) error {
	cell := func(op model.Operation) string {
		m := matches[model.BucketKey{Op: op, Group: g}]
		return fmtList(m.Candidates)
	}
	title := "possible_chips_" + g.ReportLabel()
	if err := write(title, cell(model.OpRead), cell(model.OpProgram), cell(model.OpErase)); err != nil {
		return fmt.Errorf("report: write %s: %w", title, err)
	}
	return nil
}
