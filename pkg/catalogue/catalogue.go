// Package catalogue parses the vendor datasheet catalogue into an
// in-memory, read-only table. The loader never fails the run: an
// unreadable or header-less catalogue degrades to an empty table, the same
// "recoverable, devolves to absent" policy every stage upstream of the
// report writer follows.
package catalogue

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ja7ad/flashbench/pkg/model"
)

// column identifies which CatalogueRow field a header token maps to.
type column int

const (
	colNone column = iota
	colModel
	colCompany
	colFamily
	colCapacityMbit
	colJEDEC
	colTypPage
	colTyp4K
	colTyp32K
	colTyp64K
	colRead50
)

// Table is the read-only, in-memory catalogue built by Load.
type Table struct {
	Rows []model.CatalogueRow
}

var hexDigits = regexp.MustCompile(`[0-9A-F]`)

// NormaliseJEDEC applies the same six-hex-digit normalisation the catalogue
// loader uses for datasheet rows to a raw JEDEC string from outside the
// package (a --jedec flag, a config file value). Callers building a
// model.DeviceContext should route any user-supplied JEDEC through this so
// the observed value and catalogue rows compare on equal footing.
func NormaliseJEDEC(raw string) string {
	return normaliseJEDEC(raw)
}

// normaliseJEDEC strips non-hex characters and any 0x/0X prefix, upper-
// cases the result, and keeps only fully six-digit values. Shorter or
// longer values mark the row as JEDEC-less ("").
func normaliseJEDEC(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "0X")
	var b strings.Builder
	for _, r := range s {
		if hexDigits.MatchString(string(r)) {
			b.WriteRune(r)
		}
	}
	hex := b.String()
	if len(hex) != 6 {
		return ""
	}
	return hex
}

// Load reads a comma-or-tab separated catalogue stream. The first
// non-empty line is treated as the header; its tokens are mapped to
// columns by case-insensitive substring match. Rows with fewer than two
// fields are skipped. Numeric parse failures leave the corresponding field
// absent rather than zero.
func Load(r io.Reader) (Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sep string
	var columns []column
	haveHeader := false

	var table Table

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !haveHeader {
			sep = detectSeparator(line)
			columns = mapHeader(strings.Split(line, sep))
			haveHeader = true
			continue
		}

		fields := strings.Split(line, sep)
		if len(fields) < 2 {
			continue
		}

		row := parseRow(columns, fields)
		table.Rows = append(table.Rows, row)
	}

	if err := sc.Err(); err != nil {
		// A read failure degrades to whatever was parsed so far; the
		// catalogue loader is never fatal to the overall run.
		return table, nil
	}

	return table, nil
}

// detectSeparator auto-detects comma vs tab by the header line's first
// comma.
func detectSeparator(headerLine string) string {
	if strings.Contains(headerLine, ",") {
		return ","
	}
	return "\t"
}

func mapHeader(tokens []string) []column {
	cols := make([]column, len(tokens))
	for i, tok := range tokens {
		upper := strings.ToUpper(strings.TrimSpace(tok))
		cols[i] = classifyHeaderToken(upper)
	}
	return cols
}

func classifyHeaderToken(upper string) column {
	switch {
	case strings.Contains(upper, "CHIP_MODEL"):
		return colModel
	case strings.Contains(upper, "COMPANY"):
		return colCompany
	case strings.Contains(upper, "CHIP_FAMILY"):
		return colFamily
	case strings.Contains(upper, "CAPACITY") && strings.Contains(upper, "MBIT"):
		return colCapacityMbit
	case strings.Contains(upper, "JEDEC"):
		return colJEDEC
	case strings.Contains(upper, "TYP_PAGE_PROGRAM"):
		return colTypPage
	case strings.Contains(upper, "TYP_4KB"):
		return colTyp4K
	case strings.Contains(upper, "TYP_32KB"):
		return colTyp32K
	case strings.Contains(upper, "TYP_64KB"):
		return colTyp64K
	case strings.Contains(upper, "50MHZ_READ_SPEED"),
		strings.Contains(upper, "50MHZ_READ"),
		strings.Contains(upper, "READ50"):
		return colRead50
	default:
		return colNone
	}
}

func parseRow(columns []column, fields []string) model.CatalogueRow {
	var row model.CatalogueRow

	for i, col := range columns {
		if i >= len(fields) {
			break
		}
		val := strings.TrimSpace(fields[i])

		switch col {
		case colModel:
			row.ChipModel = val
		case colCompany:
			row.Company = val
		case colFamily:
			row.Family = val
		case colCapacityMbit:
			row.CapacityMbit = parseOptFloat(val)
		case colJEDEC:
			row.JEDEC = normaliseJEDEC(val)
		case colTypPage:
			row.TypPageMs = parseOptFloat(val)
		case colTyp4K:
			row.Typ4KMs = parseOptFloat(val)
		case colTyp32K:
			row.Typ32KMs = parseOptFloat(val)
		case colTyp64K:
			row.Typ64KMs = parseOptFloat(val)
		case colRead50:
			row.Read50MBps = parseOptFloat(val)
		}
	}

	return row
}

func parseOptFloat(raw string) model.OptFloat {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.None()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.None()
	}
	return model.Some(v)
}
