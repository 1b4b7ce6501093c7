package datapush

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"BikeSharingDashboard/src/config"
	"BikeSharingDashboard/src/processor"
	"BikeSharingDashboard/src/storage"
)

func sampleDashboard(t *testing.T) *processor.Dashboard {
	t.Helper()
	season, ok := processor.LookupView(processor.ViewSeason)
	require.True(t, ok)
	segments, ok := processor.LookupView(processor.ViewSegments)
	require.True(t, ok)

	return &processor.Dashboard{
		Summary: processor.Summary{Days: 3, Total: 230, Mean: 76.6667},
		Panels: []processor.Panel{
			{
				View: season,
				Table: processor.Table{
					View:     processor.ViewSeason,
					GroupBy:  "season_label",
					Measures: []string{"casual", "registered"},
					Rows: []processor.Row{
						{Group: "Spring", Values: []float64{40.4, 59.6}, Count: 1},
						{Group: "Winter", Values: []float64{5, 45}, Count: 2},
					},
				},
				Insight: "Spring records the highest volume.",
			},
			{
				View: segments,
				Table: processor.Table{
					View:     processor.ViewSegments,
					GroupBy:  "user_cluster",
					Measures: []string{"days"},
					Rows: []processor.Row{
						{Group: "Komuter", Values: []float64{1}, Count: 1},
						{Group: "Transisi", Values: []float64{0}, Count: 0},
						{Group: "Rekreasi", Values: []float64{2}, Count: 2},
					},
				},
			},
		},
	}
}

func TestReportWorkbook(t *testing.T) {
	report := Report{
		Dashboard: sampleDashboard(t),
		Filter:    "all",
		Generated: time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, "bike-report-20261015-083000.xlsx", report.FileName())

	var buf bytes.Buffer
	n, err := report.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, processor.ViewSeason, processor.ViewSegments}, f.GetSheetList())

	rows, err := f.GetRows(processor.ViewSeason)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"season_label", "casual", "registered", "records"},
		{"Spring", "40", "60", "1"},
		{"Winter", "5", "45", "2"},
	}, rows)

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Item", "Value"}, summary[0])
	assert.Equal(t, []string{"Total rentals", "230"}, summary[4])
	assert.Equal(t, []string{"Average per day", "77"}, summary[5])
	assert.Len(t, summary, 7)
}

func TestReportSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	report := Report{Dashboard: sampleDashboard(t), Generated: time.Now()}
	require.NoError(t, report.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	value, err := f.GetCellValue(processor.ViewSegments, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Rekreasi", value)
}

func testConfig(server, to string) *config.Config {
	cfg := &config.Config{}
	cfg.SendEmail.Server = server
	cfg.SendEmail.Username = "sender@example.com"
	cfg.SendEmail.To = to
	cfg.SendEmail.TargetSubject = "Bike Sharing Daily Report"
	return cfg
}

func TestMailer(t *testing.T) {
	assert.False(t, NewMailer(testConfig("", "ops@example.com")).Enabled())
	assert.False(t, NewMailer(testConfig("smtp.example.com", "")).Enabled())

	var nilMailer *Mailer
	assert.False(t, nilMailer.Enabled())

	m := NewMailer(testConfig("smtp.example.com", "ops@example.com"))
	assert.True(t, m.Enabled())
	assert.Equal(t, "smtp.example.com:465", m.addr())
	assert.Equal(t, "smtp.example.com:587", NewMailer(testConfig("smtp.example.com:587", "x@example.com")).addr())

	attachment := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, os.WriteFile(attachment, []byte("xlsx"), 0o644))

	e, err := m.compose("3 days", attachment)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, e.To)
	assert.Equal(t, "Bike Sharing Daily Report", e.Subject)
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "report.xlsx", e.Attachments[0].Filename)

	_, err = m.compose("body", filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	logger := storage.NewWriterLogger(io.Discard)

	view := processor.FilteredView{
		Daily: dataframe.LoadRecords([][]string{
			{"dteday", "year", "season_label", "weathersit_label", "workingday", "casual", "registered", "cnt", "user_cluster"},
			{"2011-01-01", "2011", "Spring", "Clear", "0", "10", "90", "100", "Komuter"},
		}),
		Hourly: dataframe.LoadRecords([][]string{
			{"dteday", "year", "hr", "casual", "registered", "cnt"},
			{"2011-01-01", "2011", "8", "1", "9", "10"},
		}),
	}
	exporter := NewExporter(dir, func() (processor.FilteredView, string, error) {
		return view, "all", nil
	}, nil, logger)
	exporter.now = func() time.Time { return time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) }

	path, err := exporter.Export()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bike-report-20261015-000000.xlsx"), path)
	assert.FileExists(t, path)

	sourceErr := errors.New("boom")
	failing := NewExporter(dir, func() (processor.FilteredView, string, error) {
		return processor.FilteredView{}, "", sourceErr
	}, nil, logger)
	_, err = failing.Export()
	assert.ErrorIs(t, err, sourceErr)

	empty := NewExporter(dir, func() (processor.FilteredView, string, error) {
		return processor.FilteredView{Daily: dataframe.LoadRecords([][]string{{"dteday"}})}, "", nil
	}, nil, logger)
	_, err = empty.Export()
	assert.ErrorIs(t, err, processor.ErrEmptyResult)
}

func TestSchedule(t *testing.T) {
	exporter := NewExporter(t.TempDir(), nil, nil, storage.NewWriterLogger(io.Discard))

	c, err := exporter.Schedule(0)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = exporter.Schedule(time.Hour)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	c.Stop()
}
