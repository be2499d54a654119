package catalogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CommaSeparated(t *testing.T) {
	data := `CHIP_MODEL,COMPANY,CHIP_FAMILY,CAPACITY_MBIT,JEDEC,TYP_PAGE_PROGRAM,TYP_4KB,TYP_32KB,TYP_64KB,50MHZ_READ_SPEED
X,Acme,NOR,16,BF2641,0.7,45,240,400,5.0
`
	table, err := Load(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, "X", row.ChipModel)
	assert.Equal(t, "Acme", row.Company)
	assert.Equal(t, "NOR", row.Family)
	assert.Equal(t, "BF2641", row.JEDEC)
	require.True(t, row.TypPageMs.Valid)
	assert.InDelta(t, 0.7, row.TypPageMs.Value, 1e-9)
	require.True(t, row.Read50MBps.Valid)
	assert.InDelta(t, 5.0, row.Read50MBps.Value, 1e-9)

	bytesCap, ok := row.CapacityBytes()
	require.True(t, ok)
	assert.Equal(t, uint64(2097152), bytesCap) // 16 Mbit = 2MiB
}

func TestLoad_TabSeparated(t *testing.T) {
	data := "CHIP_MODEL\tCOMPANY\tJEDEC\n" + "Y\tOtherCo\tAAAAAA\n"
	table, err := Load(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Y", table.Rows[0].ChipModel)
	assert.Equal(t, "AAAAAA", table.Rows[0].JEDEC)
}

func TestLoad_JEDECNormalisation(t *testing.T) {
	cases := map[string]string{
		"0xBF2641":   "BF2641",
		"bf-26-41":   "BF2641",
		"BF2641":     "BF2641",
		"BF264":      "",
		"BF26412":    "",
		"":           "",
		"0x0x0xAB12": "00AB12",
	}
	for raw, want := range cases {
		got := normaliseJEDEC(raw)
		assert.Equal(t, want, got, "normaliseJEDEC(%q)", raw)
	}
}

func TestLoad_SkipsShortRows(t *testing.T) {
	data := "CHIP_MODEL,COMPANY\nOnlyOneField\nGood,Co\n"
	table, err := Load(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Good", table.Rows[0].ChipModel)
}

func TestLoad_NumericParseFailureLeavesAbsent(t *testing.T) {
	data := "CHIP_MODEL,TYP_PAGE_PROGRAM\nX,not-a-number\n"
	table, err := Load(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.False(t, table.Rows[0].TypPageMs.Valid)
}

func TestLoad_EmptyStream(t *testing.T) {
	table, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestLoad_BlankLinesBeforeHeader(t *testing.T) {
	data := "\n\nCHIP_MODEL,JEDEC\nX,AAAAAA\n"
	table, err := Load(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "AAAAAA", table.Rows[0].JEDEC)
}
