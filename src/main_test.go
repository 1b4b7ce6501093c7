package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BikeSharingDashboard/src/config"
	"BikeSharingDashboard/src/datasource/file"
	"BikeSharingDashboard/src/storage"
	"BikeSharingDashboard/src/store"
)

func TestDataPathsAndOptions(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Data.Dir = dir
	cfg.Data.DailyFile = "day.csv"
	cfg.Data.HourlyFile = "hour.csv"
	cfg.Data.Encoding = "gbk"

	paths := dataPaths(cfg)
	assert.Equal(t, filepath.Join(dir, "day.csv"), paths.Daily)
	assert.Equal(t, filepath.Join(dir, "hour.csv"), paths.Hourly)
	assert.Empty(t, paths.Merged)

	cfg.Data.MergedFile = "merged.xlsx"
	paths = dataPaths(cfg)
	assert.Empty(t, paths.Daily)
	assert.Equal(t, filepath.Join(dir, "merged.xlsx"), paths.DailySource())

	dcfg := &config.DataConfig{DateLayouts: []string{"2006-01-02"}}
	dcfg.SetColumn("dteday", "date")
	opts := loadOptions(cfg, dcfg)
	assert.Equal(t, "gbk", opts.Encoding)
	assert.Equal(t, "date", opts.Columns["dteday"])
	assert.Equal(t, []string{"2006-01-02"}, opts.DateLayouts)
}

func TestWritePidFile(t *testing.T) {
	assert.NoError(t, writePidFile(""))

	path := filepath.Join(t.TempDir(), "bikeshare.pid")
	require.NoError(t, writePidFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestWatchDataInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	paths := store.Paths{
		Daily:  filepath.Join(dir, "day.csv"),
		Hourly: filepath.Join(dir, "hour.csv"),
	}
	daily := "dteday,season,weathersit,workingday,casual,registered,cnt\n2011-01-01,1,1,0,10,90,100\n"
	require.NoError(t, os.WriteFile(paths.Daily, []byte(daily), 0o644))
	require.NoError(t, os.WriteFile(paths.Hourly, []byte("dteday,hr,casual,registered\n2011-01-01,8,1,9\n"), 0o644))

	logger := storage.NewWriterLogger(io.Discard)
	cache := store.NewCache(logger)
	_, err := cache.Load(paths, store.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	monitor, err := file.NewFileMonitor(dir)
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchData(ctx, monitor, cache, logger)

	require.NoError(t, os.WriteFile(paths.Daily, []byte(daily+"2011-01-02,1,1,1,5,5,10\n"), 0o644))
	assert.Eventually(t, func() bool { return cache.Len() == 0 }, 3*time.Second, 20*time.Millisecond)

	s, err := cache.Load(paths, store.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}
