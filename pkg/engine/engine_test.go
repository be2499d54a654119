package engine

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/ja7ad/flashbench/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reportCells parses a rendered report into title -> [read, write, erase].
func reportCells(t *testing.T, report string) map[string][3]string {
	t.Helper()
	out := make(map[string][3]string)
	lines := strings.Split(report, "\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			continue
		}
		out[fields[0]] = [3]string{fields[1], fields[2], fields[3]}
	}
	return out
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestGenerateReport_Scenario1_MinimalReadMatch(t *testing.T) {
	resultsF := mustOpen(t, "testdata/scenario1_results.csv")
	catF := mustOpen(t, "testdata/scenario1_catalogue.csv")

	var out bytes.Buffer
	ctx := model.DeviceContext{JEDEC: "BF2641", SCKMHz: 10, CapacityBytes: 2097152}
	err := GenerateReport(context.Background(), resultsF, catF, ctx, &out)
	require.NoError(t, err)

	cells := reportCells(t, out.String())

	assert.Equal(t, "3", cells["n_4096B"][0])
	assert.Equal(t, "0.810", cells["avg_4096B_ms"][0])
	assert.Equal(t, "1.000", cells["db_mean_4096B"][0])
	assert.Equal(t, "BF2641", cells["possible_chips_4096B"][0])
}

func TestGenerateReport_Scenario1_FinalGuess(t *testing.T) {
	resultsF := mustOpen(t, "testdata/scenario1_results.csv")
	catF := mustOpen(t, "testdata/scenario1_catalogue.csv")

	var out bytes.Buffer
	ctx := model.DeviceContext{JEDEC: "BF2641", SCKMHz: 10, CapacityBytes: 2097152}
	err := GenerateReport(context.Background(), resultsF, catF, ctx, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	last := lines[len(lines)-1]
	fields := strings.Split(last, ",")
	require.Len(t, fields, 4)
	assert.Equal(t, "BF2641", fields[0])
	assert.Equal(t, "X", fields[1])

	var score float64
	_, scanErr := fmt.Sscanf(fields[3], "%f", &score)
	require.NoError(t, scanErr)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.Less(t, score, 3.0)
}

func TestGenerateReport_Scenario2_ProgramPages(t *testing.T) {
	resultsF := mustOpen(t, "testdata/scenario2_results.csv")
	catF := mustOpen(t, "testdata/scenario2_catalogue.csv")

	var out bytes.Buffer
	ctx := model.DeviceContext{CapacityBytes: 1048576}
	err := GenerateReport(context.Background(), resultsF, catF, ctx, &out)
	require.NoError(t, err)

	cells := reportCells(t, out.String())
	assert.Equal(t, "11.200", cells["db_mean_4096B"][1])
	assert.Equal(t, "12.000", cells["avg_4096B_ms"][1])
	assert.Equal(t, "AAAAAA", cells["possible_chips_4096B"][1])
}

func TestGenerateReport_Scenario3_EraseBySize(t *testing.T) {
	resultsF := mustOpen(t, "testdata/scenario3_results.csv")
	catF := mustOpen(t, "testdata/scenario3_catalogue.csv")

	var out bytes.Buffer
	err := GenerateReport(context.Background(), resultsF, catF, model.DeviceContext{}, &out)
	require.NoError(t, err)

	cells := reportCells(t, out.String())
	assert.Equal(t, "45.000", cells["db_mean_4096B"][2])
	assert.Equal(t, "240.000", cells["db_mean_32768B"][2])
	assert.Equal(t, "400.000", cells["db_mean_65536B"][2])
	assert.Equal(t, "EFEF00", cells["conclusion_possible_chips"][2])
}

func TestGenerateReport_Scenario4_AmbiguityAndIntersection(t *testing.T) {
	resultsF := mustOpen(t, "testdata/scenario4_results.csv")
	catF := mustOpen(t, "testdata/scenario4_catalogue.csv")

	var out bytes.Buffer
	err := GenerateReport(context.Background(), resultsF, catF, model.DeviceContext{}, &out)
	require.NoError(t, err)

	cells := reportCells(t, out.String())
	assert.Equal(t, "111111/222222", cells["possible_chips_4096B"][2])
	assert.Equal(t, "111111/222222", cells["possible_chips_32768B"][2])
	assert.Equal(t, "111111", cells["possible_chips_65536B"][2])
	assert.Equal(t, "111111", cells["conclusion_possible_chips"][2])
}

func TestGenerateReport_Scenario5_NoSamplesKnownJEDEC(t *testing.T) {
	resultsF := mustOpen(t, "testdata/scenario5_results.csv")
	catF := mustOpen(t, "testdata/scenario5_catalogue.csv")

	var out bytes.Buffer
	ctx := model.DeviceContext{JEDEC: "C21F17"}
	err := GenerateReport(context.Background(), resultsF, catF, ctx, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	last := lines[len(lines)-1]
	assert.Equal(t, "C21F17,MX25L,Macronix,0.000", last)

	cells := reportCells(t, out.String())
	assert.Equal(t, "NA", cells["n_4096B"][0])
}

func TestGenerateReport_Scenario6_MalformedResilience(t *testing.T) {
	good := []string{
		"a,read,4096,0,800,5",
		"a,read,4096,0,820,5",
		"a,program,4096,0,12000,0",
		"a,erase,65536,0,402000,0",
	}
	var goodLines []string
	for i := 0; i < 50; i++ {
		goodLines = append(goodLines, good...)
	}
	garbage := []string{
		"truncated",
		"a\tb\tc\td\te\tf",
		"a,read,notanumber,0,800,5",
		"a,read,4096,0,-5,5",
	}
	var garbageLines []string
	for i := 0; i < 13; i++ {
		garbageLines = append(garbageLines, garbage...)
	}
	garbageLines = garbageLines[:50]

	all := append(append([]string{}, goodLines...), garbageLines...)
	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	cat := strings.NewReader("CHIP_MODEL\nX\n")

	var withGarbage bytes.Buffer
	err := GenerateReport(context.Background(), strings.NewReader(strings.Join(all, "\n")), cat, model.DeviceContext{}, &withGarbage)
	require.NoError(t, err)

	cat2 := strings.NewReader("CHIP_MODEL\nX\n")
	var withoutGarbage bytes.Buffer
	err = GenerateReport(context.Background(), strings.NewReader(strings.Join(goodLines, "\n")), cat2, model.DeviceContext{}, &withoutGarbage)
	require.NoError(t, err)

	assert.Equal(t, withoutGarbage.String(), withGarbage.String())
}

func TestGenerateReport_AllAbsentInputs(t *testing.T) {
	var out bytes.Buffer
	err := GenerateReport(context.Background(), nil, nil, model.DeviceContext{}, &out)
	require.NoError(t, err)

	lines := strings.Split(out.String(), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "title,read,write,erase", lines[0])

	last := strings.TrimRight(out.String(), "\n")
	lastLines := strings.Split(last, "\n")
	assert.Equal(t, "undecided,undecided,undecided,NA", lastLines[len(lastLines)-1])
}

func TestGenerateReport_HeaderAndSingleFinalBlock(t *testing.T) {
	var out bytes.Buffer
	err := GenerateReport(context.Background(), nil, nil, model.DeviceContext{}, &out)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.String(), "title,read,write,erase\n"))
	count := strings.Count(out.String(), "final_guess_jedec,final_guess_model,final_guess_company,final_score")
	assert.Equal(t, 1, count)
}
