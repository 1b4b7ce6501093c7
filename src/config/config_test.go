package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	jsonFolder := ""
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	require.NoError(t, err)

	assert.Equal(t, "day.csv", cfg.Data.DailyFile)
	assert.Equal(t, "hour.csv", cfg.Data.HourlyFile)
	assert.Equal(t, 24*time.Hour, time.Duration(cfg.Report.CheckInterval))
	assert.Equal(t, "dteday", dcfg.Column("dteday"))
	assert.Contains(t, dcfg.DateLayouts, "2006-01-02")

	again, _, err := LoadConfig("does-not-exist", jsonFile, dataJsonFile)
	require.NoError(t, err)
	assert.Same(t, cfg, again)
}

func writeConfigs(t *testing.T, cfgJSON, dataJSON string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfgJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dataconfig.json"), []byte(dataJSON), 0644))
	return dir
}

const minimalConfig = `{
  "data": {"dir": "/srv/data", "daily_file": "day.csv", "hourly_file": "hour.csv"},
  "server": {"addr": ":9000"},
  "log_name": "app.log"
}`

func TestLoadConfigsDefaults(t *testing.T) {
	dir := writeConfigs(t, minimalConfig, `{}`)

	cfg, dcfg, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)

	assert.Equal(t, "utf-8", cfg.Data.Encoding)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.Server.ShutdownTimeout))
	assert.Equal(t, "10 * 1024 * 1024", cfg.LogMaxSize)
	assert.Equal(t, []string{"2006-01-02"}, dcfg.DateLayouts)
	assert.Equal(t, "casual", dcfg.Column("casual"))
	assert.Equal(t, filepath.Join("/srv/data", "day.csv"), cfg.DailyPath())
	assert.Equal(t, filepath.Join("/srv/data", "hour.csv"), cfg.HourlyPath())
	assert.Empty(t, cfg.MergedPath())
}

func TestLoadConfigsMergedPath(t *testing.T) {
	dir := writeConfigs(t, `{
  "data": {"dir": "/srv/data", "daily_file": "day.csv", "hourly_file": "hour.csv", "merged_file": "main_data.csv"},
  "server": {"addr": ":9000"},
  "log_name": "app.log"
}`, `{}`)

	cfg, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	assert.Empty(t, cfg.DailyPath())
	assert.Equal(t, filepath.Join("/srv/data", "main_data.csv"), cfg.MergedPath())
}

func TestLoadConfigsEnvOverride(t *testing.T) {
	dir := writeConfigs(t, minimalConfig, `{}`)
	t.Setenv("BIKE_DATA_DIR", "/override")
	t.Setenv("BIKE_REPORT_CHECK_INTERVAL", "90m")
	t.Setenv("BIKE_SERVER_ADDR", ":7777")

	cfg, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	assert.Equal(t, "/override", cfg.Data.Dir)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, 90*time.Minute, time.Duration(cfg.Report.CheckInterval))
	assert.Equal(t, "day.csv", cfg.Data.DailyFile)
}

func TestLoadConfigsIgnoresUnprefixedEnv(t *testing.T) {
	dir := writeConfigs(t, minimalConfig, `{}`)
	t.Setenv("DIR", "/somewhere/else")
	t.Setenv("ADDR", ":9999")
	t.Setenv("USERNAME", "bob")
	t.Setenv("LOG_NAME", "other.log")
	t.Setenv("BIKE_SEND_EMAIL_TARGET_SUBJECT", "weekly")

	cfg, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", cfg.Data.Dir)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Empty(t, cfg.Report.Dir)
	assert.Empty(t, cfg.SendEmail.Username)
	assert.Equal(t, "app.log", cfg.LogName)
	assert.Equal(t, "weekly", cfg.SendEmail.TargetSubject)
}

func TestLoadConfigsErrors(t *testing.T) {
	tests := []struct {
		name     string
		cfgJSON  string
		dataJSON string
		wantErr  string
	}{
		{
			name:     "bad config json",
			cfgJSON:  `{"data":`,
			dataJSON: `{}`,
			wantErr:  "解析Config失败",
		},
		{
			name:     "both broken",
			cfgJSON:  `[`,
			dataJSON: `[`,
			wantErr:  "配置加载遇到多个错误",
		},
		{
			name:     "missing required field",
			cfgJSON:  `{"data": {"dir": "d", "daily_file": "a", "hourly_file": "b"}, "log_name": "x"}`,
			dataJSON: `{}`,
			wantErr:  "配置校验失败",
		},
		{
			name: "invalid recipient",
			cfgJSON: `{"data": {"dir": "d", "daily_file": "a", "hourly_file": "b"},
				"server": {"addr": ":1"}, "log_name": "x", "send_email": {"to": "not-an-address"}}`,
			dataJSON: `{}`,
			wantErr:  "配置校验失败",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfigs(t, tt.cfgJSON, tt.dataJSON)
			_, _, err := loadConfigs(dir, "config.json", "dataconfig.json")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigsMissingFile(t *testing.T) {
	_, _, err := loadConfigs(t.TempDir(), "config.json", "dataconfig.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1h30m"`)))
	assert.Equal(t, 90*time.Minute, time.Duration(d))

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1h30m0s"`, string(out))

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}

func TestDataConfigColumns(t *testing.T) {
	dc := &DataConfig{}
	assert.Equal(t, "cnt", dc.Column("cnt"))

	dc.SetColumn("cnt", "total")
	assert.Equal(t, "total", dc.Column("cnt"))

	m := dc.ColumnMap()
	m["cnt"] = "changed"
	assert.Equal(t, "total", dc.Column("cnt"))
}
