package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `time,Electricity imported T1,Electricity imported T2,Electricity exported T1,Electricity exported T2
2024-01-01 00:00,100.000,50.000,0.000,0.000
2024-01-01 12:00,101.000,50.000,0.000,0.000
2024-01-02 00:00,102.000,50.500,0.000,0.000
2024-01-02 12:00,104.500,50.500,0.000,0.000
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		reportBy = ""
		importFile = ""
	})
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestImportThenReport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ESM_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("ESM_DATA_DIR", filepath.Join(dir, "data"))

	cfgPath := filepath.Join(dir, "meter_collector.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("timezone = \"UTC\"\n"), 0644))
	csvPath := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(export), 0644))

	out := execute(t, "--config", cfgPath, "import", "-f", csvPath)
	assert.Equal(t, "Imported 4 rows: 6 new readings, 2 duplicates\n", out)

	out = execute(t, "--config", cfgPath, "report", "2024-01-01..2024-01-02")
	assert.Equal(t, "normal: 4.5 kWh\noffpeak: 0.5 kWh\n\ntotal: 5 kWh\n", out)

	out = execute(t, "--config", cfgPath, "report", "2024-01-01..2024-01-02", "--by", "day")
	assert.Equal(t,
		"2024-01-01 00:00 - 2024-01-01 23:59\nnormal: 1 kWh\noffpeak: 0 kWh\n\ntotal: 1 kWh\n"+
			"\n"+
			"2024-01-02 00:00 - 2024-01-02 23:59\nnormal: 2.5 kWh\noffpeak: 0 kWh\n\ntotal: 2.5 kWh\n",
		out)
}

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telegram.txt")
	raw := "/ISK5\\2M550T-1012\n\n1-0:1.8.1(000001.000*kWh)\n1-0:1.8.2(000002.500*kWh)\n0-0:96.14.0(0002)\n!0000\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	out := execute(t, "parse", path)
	assert.Contains(t, out, "active: offpeak\n")
	assert.Contains(t, out, "normal:  1 kWh  (3600000 J,")
	assert.Contains(t, out, "offpeak: 2.5 kWh  (9000000 J,")
}
