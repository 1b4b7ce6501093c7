package store

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"BikeSharingDashboard/src/datasource/file"
	"BikeSharingDashboard/src/segment"
	"BikeSharingDashboard/src/storage"
	"BikeSharingDashboard/src/utils"
)

// ratioTolerance 预合并文件中 casual_ratio 允许的误差
const ratioTolerance = 0.01

// Options 加载选项
type Options struct {
	Encoding    string
	SheetName   string
	Columns     map[string]string // 逻辑列名 -> 实际列名
	DateLayouts []string
}

func (o Options) column(name string) string {
	if col, ok := o.Columns[name]; ok && col != "" {
		return col
	}
	return name
}

// Quality 加载过程中发现的数据质量问题
type Quality struct {
	UnmappedSeason  int // 季节编码不在查找表中
	UnmappedWeather int // 天气编码不在查找表中
	Unclassified    int // total 为 0，无法分段
	HourlyUnmatched int // 小时记录找不到同日期的日记录
}

// RecordStore 加载后只读的数据集
type RecordStore struct {
	paths    Paths
	daily    []Record
	hourly   []HourlyRecord
	dailyDF  dataframe.DataFrame
	hourlyDF dataframe.DataFrame
	quality  Quality
	loadedAt time.Time
}

// Load 读取日数据和小时数据，校验并附加派生列
func Load(paths Paths, opts Options, logger *storage.Logger) (*RecordStore, error) {
	start := time.Now()
	merged := paths.Merged != ""

	for _, p := range paths.Files() {
		if err := checkExists(p); err != nil {
			return nil, err
		}
	}

	dailyDF, err := readTable(paths.DailySource(), opts)
	if err != nil {
		return nil, err
	}
	hourlyDF, err := readTable(paths.Hourly, opts)
	if err != nil {
		return nil, err
	}

	s := &RecordStore{paths: paths}

	s.daily, err = parseDaily(dailyDF, paths.DailySource(), opts, merged, &s.quality)
	if err != nil {
		return nil, err
	}
	s.hourly, err = parseHourly(hourlyDF, paths.Hourly, opts)
	if err != nil {
		return nil, err
	}
	s.quality.HourlyUnmatched = attachDailyLabels(s.hourly, s.daily)

	s.dailyDF = dailyFrame(s.daily)
	s.hourlyDF = hourlyFrame(s.hourly)
	s.loadedAt = time.Now()

	logger.Info("数据集加载完成",
		zap.String("daily", paths.DailySource()),
		zap.String("hourly", paths.Hourly),
		zap.Int("daily_rows", len(s.daily)),
		zap.Int("hourly_rows", len(s.hourly)),
		storage.Since(start))
	s.reportQuality(logger)

	return s, nil
}

func (s *RecordStore) reportQuality(logger *storage.Logger) {
	q := s.quality
	if q.UnmappedSeason > 0 {
		logger.Warning("存在未映射的季节编码", zap.Int("rows", q.UnmappedSeason))
	}
	if q.UnmappedWeather > 0 {
		logger.Warning("存在未映射的天气编码", zap.Int("rows", q.UnmappedWeather))
	}
	if q.Unclassified > 0 {
		logger.Warning("total为0的记录无法分段", zap.Int("rows", q.Unclassified))
	}
	if q.HourlyUnmatched > 0 {
		logger.Warning("小时记录没有对应的日记录", zap.Int("rows", q.HourlyUnmatched))
	}
}

func checkExists(path string) error {
	if path == "" {
		return &DataNotFoundError{Path: path, Err: os.ErrNotExist}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &DataNotFoundError{Path: path, Err: err}
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return &DataNotFoundError{Path: path, Err: fmt.Errorf("%s is a directory", path)}
	}
	return nil
}

func readTable(path string, opts Options) (dataframe.DataFrame, error) {
	df, err := file.ReadTable(path, file.ReadOptions{Encoding: opts.Encoding, SheetName: opts.SheetName})
	if err != nil {
		return df, &MalformedDataError{Path: path, Err: err}
	}
	return df, nil
}

// columnValues 取出所需列的全部字符串值
func columnValues(df dataframe.DataFrame, path string, opts Options, logical []string) (map[string][]string, error) {
	physical := make([]string, len(logical))
	for i, name := range logical {
		physical[i] = opts.column(name)
	}
	if missing := utils.MissingColumns(df, physical...); len(missing) > 0 {
		return nil, &MalformedDataError{Path: path, Column: strings.Join(missing, ", "), Err: ErrMissingColumn}
	}

	values := make(map[string][]string, len(logical))
	for i, name := range logical {
		values[name] = df.Col(physical[i]).Records()
	}
	return values, nil
}

// rowReader 按行读取并转换单元格，错误带上行号和列名
type rowReader struct {
	path   string
	opts   Options
	values map[string][]string
	row    int
}

func (r *rowReader) raw(name string) string {
	return strings.TrimSpace(r.values[name][r.row])
}

func (r *rowReader) fail(name string, err error) error {
	return &MalformedDataError{
		Path:   r.path,
		Line:   r.row + 2,
		Column: r.opts.column(name),
		Value:  r.raw(name),
		Err:    err,
	}
}

func (r *rowReader) date(name string) (time.Time, error) {
	t, err := utils.ParseDate(r.raw(name), r.opts.DateLayouts)
	if err != nil {
		return t, r.fail(name, err)
	}
	return t, nil
}

func (r *rowReader) integer(name string) (int, error) {
	v, err := parseInt(r.raw(name))
	if err != nil {
		return 0, r.fail(name, err)
	}
	return v, nil
}

func (r *rowReader) count(name string) (int, error) {
	v, err := r.integer(name)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, r.fail(name, fmt.Errorf("negative count"))
	}
	return v, nil
}

// parseInt 兼容 xlsx 中 "1.0" 这类整数值
func parseInt(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}

func parseDaily(df dataframe.DataFrame, path string, opts Options, merged bool, q *Quality) ([]Record, error) {
	required := []string{ColDate, ColSeason, ColWeather, ColWorkingDay, ColCasual, ColRegistered, ColTotal}
	if merged {
		required = append(required, ColYear, ColSeasonLabel, ColWeatherLabel, ColCasualRatio, ColCluster)
	}
	values, err := columnValues(df, path, opts, required)
	if err != nil {
		return nil, err
	}

	n := df.Nrow()
	records := make([]Record, 0, n)
	r := &rowReader{path: path, opts: opts, values: values}
	for r.row = 0; r.row < n; r.row++ {
		rec, err := r.daily()
		if err != nil {
			return nil, err
		}
		if merged {
			if err := r.checkDerived(rec); err != nil {
				return nil, err
			}
		}
		if !rec.Season.Valid() {
			q.UnmappedSeason++
		}
		if !rec.Weather.Valid() {
			q.UnmappedWeather++
		}
		if rec.Segment == segment.Unclassified {
			q.Unclassified++
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *rowReader) daily() (Record, error) {
	var rec Record
	var err error

	if rec.Date, err = r.date(ColDate); err != nil {
		return rec, err
	}
	rec.Year = rec.Date.Year()

	seasonCode, err := r.integer(ColSeason)
	if err != nil {
		return rec, err
	}
	if s, ok := SeasonFromCode(seasonCode); ok {
		rec.Season = s
	}

	weatherCode, err := r.integer(ColWeather)
	if err != nil {
		return rec, err
	}
	if w, ok := WeatherFromCode(weatherCode); ok {
		rec.Weather = w
	}

	working, err := r.integer(ColWorkingDay)
	if err != nil {
		return rec, err
	}
	if working != 0 && working != 1 {
		return rec, r.fail(ColWorkingDay, fmt.Errorf("workingday must be 0 or 1"))
	}
	rec.WorkingDay = working == 1

	if rec.Casual, err = r.count(ColCasual); err != nil {
		return rec, err
	}
	if rec.Registered, err = r.count(ColRegistered); err != nil {
		return rec, err
	}
	if rec.Total, err = r.count(ColTotal); err != nil {
		return rec, err
	}
	if rec.Total != rec.Casual+rec.Registered {
		return rec, r.fail(ColTotal, ErrAdditiveInvariant)
	}

	rec.CasualRatio, _ = segment.CasualRatio(rec.Casual, rec.Total)
	rec.Segment = segment.Classify(rec.CasualRatio)
	return rec, nil
}

// checkDerived 校验预合并文件提供的派生列
func (r *rowReader) checkDerived(rec Record) error {
	year, err := r.integer(ColYear)
	if err != nil {
		return err
	}
	if year != rec.Year {
		return r.fail(ColYear, ErrDerivedMismatch)
	}
	if !sameLabel(r.raw(ColSeasonLabel), rec.Season.String()) {
		return r.fail(ColSeasonLabel, ErrDerivedMismatch)
	}
	if !sameLabel(r.raw(ColWeatherLabel), rec.Weather.String()) {
		return r.fail(ColWeatherLabel, ErrDerivedMismatch)
	}
	if !sameLabel(r.raw(ColCluster), string(rec.Segment)) {
		return r.fail(ColCluster, ErrDerivedMismatch)
	}

	rawRatio := r.raw(ColCasualRatio)
	if isMissing(rawRatio) {
		if !math.IsNaN(rec.CasualRatio) {
			return r.fail(ColCasualRatio, ErrDerivedMismatch)
		}
		return nil
	}
	ratio, err := strconv.ParseFloat(rawRatio, 64)
	if err != nil {
		return r.fail(ColCasualRatio, fmt.Errorf("not a number"))
	}
	if math.IsNaN(rec.CasualRatio) || math.Abs(ratio-rec.CasualRatio) > ratioTolerance {
		return r.fail(ColCasualRatio, ErrDerivedMismatch)
	}
	return nil
}

func isMissing(s string) bool {
	return s == "" || s == naLabel || strings.EqualFold(s, "nan") || s == "NA"
}

func sameLabel(provided, derived string) bool {
	if isMissing(provided) {
		return derived == ""
	}
	return provided == derived
}

func parseHourly(df dataframe.DataFrame, path string, opts Options) ([]HourlyRecord, error) {
	required := []string{ColDate, ColHour, ColCasual, ColRegistered}
	withTotal := utils.HasColumn(df, opts.column(ColTotal))
	if withTotal {
		required = append(required, ColTotal)
	}
	values, err := columnValues(df, path, opts, required)
	if err != nil {
		return nil, err
	}

	n := df.Nrow()
	records := make([]HourlyRecord, 0, n)
	r := &rowReader{path: path, opts: opts, values: values}
	for r.row = 0; r.row < n; r.row++ {
		var rec HourlyRecord
		if rec.Date, err = r.date(ColDate); err != nil {
			return nil, err
		}
		rec.Year = rec.Date.Year()
		if rec.Hour, err = r.integer(ColHour); err != nil {
			return nil, err
		}
		if rec.Hour < 0 || rec.Hour > 23 {
			return nil, r.fail(ColHour, fmt.Errorf("hour must be within 0-23"))
		}
		if rec.Casual, err = r.count(ColCasual); err != nil {
			return nil, err
		}
		if rec.Registered, err = r.count(ColRegistered); err != nil {
			return nil, err
		}
		rec.Total = rec.Casual + rec.Registered
		if withTotal {
			total, err := r.count(ColTotal)
			if err != nil {
				return nil, err
			}
			if total != rec.Total {
				return nil, r.fail(ColTotal, ErrAdditiveInvariant)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// attachDailyLabels 按日期关联季节和天气，返回无法关联的小时记录数
func attachDailyLabels(hourly []HourlyRecord, daily []Record) int {
	byDate := make(map[string]*Record, len(daily))
	for i := range daily {
		byDate[daily[i].Date.Format(utils.DateLayout)] = &daily[i]
	}

	unmatched := 0
	for i := range hourly {
		day, ok := byDate[hourly[i].Date.Format(utils.DateLayout)]
		if !ok {
			unmatched++
			continue
		}
		hourly[i].Season = day.Season
		hourly[i].Weather = day.Weather
	}
	return unmatched
}

func label(s string) string {
	if s == "" {
		return naLabel
	}
	return s
}

func dailyFrame(records []Record) dataframe.DataFrame {
	n := len(records)
	var (
		dates      = make([]string, n)
		years      = make([]int, n)
		seasons    = make([]int, n)
		seasonLbl  = make([]string, n)
		weathers   = make([]int, n)
		weatherLbl = make([]string, n)
		working    = make([]int, n)
		casual     = make([]int, n)
		registered = make([]int, n)
		total      = make([]int, n)
		ratio      = make([]float64, n)
		cluster    = make([]string, n)
	)
	for i, rec := range records {
		dates[i] = rec.Date.Format(utils.DateLayout)
		years[i] = rec.Year
		seasons[i] = int(rec.Season)
		seasonLbl[i] = label(rec.Season.String())
		weathers[i] = int(rec.Weather)
		weatherLbl[i] = label(rec.Weather.String())
		if rec.WorkingDay {
			working[i] = 1
		}
		casual[i] = rec.Casual
		registered[i] = rec.Registered
		total[i] = rec.Total
		ratio[i] = rec.CasualRatio
		cluster[i] = label(string(rec.Segment))
	}

	return dataframe.New(
		series.New(dates, series.String, ColDate),
		series.New(years, series.Int, ColYear),
		series.New(seasons, series.Int, ColSeason),
		series.New(seasonLbl, series.String, ColSeasonLabel),
		series.New(weathers, series.Int, ColWeather),
		series.New(weatherLbl, series.String, ColWeatherLabel),
		series.New(working, series.Int, ColWorkingDay),
		series.New(casual, series.Int, ColCasual),
		series.New(registered, series.Int, ColRegistered),
		series.New(total, series.Int, ColTotal),
		series.New(ratio, series.Float, ColCasualRatio),
		series.New(cluster, series.String, ColCluster),
	)
}

func hourlyFrame(records []HourlyRecord) dataframe.DataFrame {
	n := len(records)
	var (
		dates      = make([]string, n)
		years      = make([]int, n)
		hours      = make([]int, n)
		casual     = make([]int, n)
		registered = make([]int, n)
		total      = make([]int, n)
		seasonLbl  = make([]string, n)
		weatherLbl = make([]string, n)
	)
	for i, rec := range records {
		dates[i] = rec.Date.Format(utils.DateLayout)
		years[i] = rec.Year
		hours[i] = rec.Hour
		casual[i] = rec.Casual
		registered[i] = rec.Registered
		total[i] = rec.Total
		seasonLbl[i] = label(rec.Season.String())
		weatherLbl[i] = label(rec.Weather.String())
	}

	return dataframe.New(
		series.New(dates, series.String, ColDate),
		series.New(years, series.Int, ColYear),
		series.New(hours, series.Int, ColHour),
		series.New(casual, series.Int, ColCasual),
		series.New(registered, series.Int, ColRegistered),
		series.New(total, series.Int, ColTotal),
		series.New(seasonLbl, series.String, ColSeasonLabel),
		series.New(weatherLbl, series.String, ColWeatherLabel),
	)
}

// Daily 日数据表(副本)
func (s *RecordStore) Daily() dataframe.DataFrame {
	return s.dailyDF.Copy()
}

// Hourly 小时数据表(副本)
func (s *RecordStore) Hourly() dataframe.DataFrame {
	return s.hourlyDF.Copy()
}

// Records 日记录(副本)
func (s *RecordStore) Records() []Record {
	out := make([]Record, len(s.daily))
	copy(out, s.daily)
	return out
}

// HourlyRecords 小时记录(副本)
func (s *RecordStore) HourlyRecords() []HourlyRecord {
	out := make([]HourlyRecord, len(s.hourly))
	copy(out, s.hourly)
	return out
}

// Len 日记录数
func (s *RecordStore) Len() int {
	return len(s.daily)
}

// DateBounds 日数据的最早和最晚日期，数据为空时ok为false
func (s *RecordStore) DateBounds() (min, max time.Time, ok bool) {
	for i, rec := range s.daily {
		if i == 0 || rec.Date.Before(min) {
			min = rec.Date
		}
		if i == 0 || rec.Date.After(max) {
			max = rec.Date
		}
	}
	return min, max, len(s.daily) > 0
}

// Years 数据中出现的年份，升序
func (s *RecordStore) Years() []int {
	var years []int
	for _, rec := range s.daily {
		if !utils.Contains(years, rec.Year) {
			years = append(years, rec.Year)
		}
	}
	sort.Ints(years)
	return years
}

// Paths 本次加载使用的文件
func (s *RecordStore) Paths() Paths { return s.paths }

// Quality 加载时统计的数据质量问题
func (s *RecordStore) Quality() Quality { return s.quality }

func (s *RecordStore) LoadedAt() time.Time { return s.loadedAt }
