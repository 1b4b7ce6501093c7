package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadTableCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "day.csv",
		"dteday,season,cnt\n2011-01-01,1,985\n2011-01-02,1,801\n")

	df, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"dteday", "season", "cnt"}, df.Names())
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []string{"985", "801"}, df.Col("cnt").Records())
}

func TestReadTableTSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "hour.tsv", "dteday\thr\n2011-01-01\t0\n")

	df, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, df.Col("hr").Records())
}

func TestReadTableEncoding(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.csv", "dteday,note\n2011-01-01,caf\xe9\n")

	df, err := ReadTable(path, ReadOptions{Encoding: "latin1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"café"}, df.Col("note").Records())

	_, err = ReadTable(path, ReadOptions{Encoding: "klingon"})
	assert.Error(t, err)
}

func TestReadTableErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadTable(filepath.Join(dir, "missing.csv"), ReadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := writeFile(t, dir, "day.parquet", "x")
	_, err = ReadTable(path, ReadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func writeXLSX(t *testing.T, path, sheetName string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().Value = v
		}
	}
	require.NoError(t, f.Save(path))
}

func TestReadTableXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.xlsx")
	writeXLSX(t, path, "data", [][]string{
		{"dteday", "season", "cnt"},
		{"40544", "1", "985"},
		{"", "", ""},
		{"40545", "1", "801"},
		{"", "", ""},
	})

	// 中间空行保留，末尾空行去掉，行号与工作表一致
	df, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, []string{"40544", "", "40545"}, df.Col("dteday").Records())

	df, err = ReadTable(path, ReadOptions{SheetName: "data"})
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())

	_, err = ReadTable(path, ReadOptions{SheetName: "other"})
	assert.Error(t, err)
}

func TestResolveDir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, ResolveDir(dir))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data"), 0755))
	assert.Equal(t, "data", ResolveDir("data"))

	exe, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(exe), "nowhere"), ResolveDir("nowhere"))
}

func TestFileMonitor(t *testing.T) {
	dir := t.TempDir()
	monitor, err := NewFileMonitor(dir)
	require.NoError(t, err)
	defer monitor.Close()
	assert.Equal(t, dir, monitor.Dir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, func(name string) {
			events <- name
		})
	}()

	target := filepath.Join(dir, "day.csv")
	require.NoError(t, os.WriteFile(target, []byte("dteday\n"), 0644))

	select {
	case name := <-events:
		assert.Equal(t, target, name)
	case <-time.After(5 * time.Second):
		t.Fatal("no file event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestNewFileMonitorMissingDir(t *testing.T) {
	_, err := NewFileMonitor(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
