package processor

import (
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"BikeSharingDashboard/src/segment"
	"BikeSharingDashboard/src/store"
)

// 度量名
const (
	MeasureCasual     = "casual"
	MeasureRegistered = "registered"
	MeasureTotal      = "cnt"
	MeasureDays       = "days"
)

// 工作日分组标签
const (
	NonWorkingDay = "Non-working day"
	WorkingDay    = "Working day"
)

// groupMeans 按 keys 分组求各列均值，按 order 输出，没有记录的分组不输出
func groupMeans(keys, order []string, columns ...[]float64) []Row {
	buckets := make(map[string][][]float64, len(order))
	for i, k := range keys {
		b, ok := buckets[k]
		if !ok {
			b = make([][]float64, len(columns))
		}
		for c, col := range columns {
			b[c] = append(b[c], col[i])
		}
		buckets[k] = b
	}

	rows := make([]Row, 0, len(order))
	for _, g := range order {
		b, ok := buckets[g]
		if !ok || len(b[0]) == 0 {
			continue
		}
		values := make([]float64, len(columns))
		for c := range columns {
			values[c] = stat.Mean(b[c], nil)
		}
		rows = append(rows, Row{Group: g, Values: values, Count: len(b[0])})
	}
	return rows
}

func floatCol(df dataframe.DataFrame, name string) []float64 {
	if df.Nrow() == 0 {
		return nil
	}
	return df.Col(name).Float()
}

func stringCol(df dataframe.DataFrame, name string) []string {
	if df.Nrow() == 0 {
		return nil
	}
	return df.Col(name).Records()
}

func seasonLabels() []string {
	labels := make([]string, len(store.SeasonOrder))
	for i, s := range store.SeasonOrder {
		labels[i] = s.String()
	}
	return labels
}

// chartWeathers 天气视图只展示前三种天气
func chartWeathers() []string {
	labels := make([]string, 0, 3)
	for _, w := range store.WeatherOrder[:3] {
		labels = append(labels, w.String())
	}
	return labels
}

// SeasonMeans 各季节散客与注册用户的日均租车量，顺序为 Spring, Summer, Fall, Winter
func SeasonMeans(v FilteredView) Table {
	df := v.Daily
	return Table{
		View:     ViewSeason,
		GroupBy:  store.ColSeasonLabel,
		Measures: []string{MeasureCasual, MeasureRegistered},
		Rows: groupMeans(stringCol(df, store.ColSeasonLabel), seasonLabels(),
			floatCol(df, store.ColCasual), floatCol(df, store.ColRegistered)),
	}
}

// WorkingDayTotals 非工作日与工作日的日均总量
func WorkingDayTotals(v FilteredView) Table {
	df := v.Daily
	flags := stringCol(df, store.ColWorkingDay)
	keys := make([]string, len(flags))
	for i, f := range flags {
		if f == "1" {
			keys[i] = WorkingDay
		} else {
			keys[i] = NonWorkingDay
		}
	}
	return Table{
		View:     ViewWorkingDay,
		GroupBy:  store.ColWorkingDay,
		Measures: []string{MeasureTotal},
		Rows:     groupMeans(keys, []string{NonWorkingDay, WorkingDay}, floatCol(df, store.ColTotal)),
	}
}

// HourlyMeans 每小时散客与注册用户的平均租车量，按小时升序
func HourlyMeans(v FilteredView) Table {
	df := v.Hourly
	order := make([]string, 24)
	for h := range order {
		order[h] = strconv.Itoa(h)
	}
	return Table{
		View:     ViewHourly,
		GroupBy:  store.ColHour,
		Measures: []string{MeasureCasual, MeasureRegistered},
		Rows: groupMeans(stringCol(df, store.ColHour), order,
			floatCol(df, store.ColCasual), floatCol(df, store.ColRegistered)),
	}
}

// WeatherTotals 各天气下的日均总量，只包含 Clear, Mist, Light Rain/Snow
func WeatherTotals(v FilteredView) Table {
	df := v.Daily
	return Table{
		View:     ViewWeather,
		GroupBy:  store.ColWeatherLabel,
		Measures: []string{MeasureTotal},
		Rows:     groupMeans(stringCol(df, store.ColWeatherLabel), chartWeathers(), floatCol(df, store.ColTotal)),
	}
}

// WeatherMeans 各天气下散客与注册用户的日均租车量
func WeatherMeans(v FilteredView) Table {
	df := v.Daily
	return Table{
		View:     ViewWeatherResponse,
		GroupBy:  store.ColWeatherLabel,
		Measures: []string{MeasureCasual, MeasureRegistered},
		Rows: groupMeans(stringCol(df, store.ColWeatherLabel), chartWeathers(),
			floatCol(df, store.ColCasual), floatCol(df, store.ColRegistered)),
	}
}

// SegmentCounts 各分段的天数，三个分段总是全部输出；无法分段的记录不计入
func SegmentCounts(v FilteredView) Table {
	counts := make(map[string]int, len(segment.Order))
	for _, label := range stringCol(v.Daily, store.ColCluster) {
		if s, ok := segment.Parse(label); ok {
			counts[string(s)]++
		}
	}

	rows := make([]Row, 0, len(segment.Order))
	for _, s := range segment.Order {
		n := counts[string(s)]
		rows = append(rows, Row{Group: string(s), Values: []float64{float64(n)}, Count: n})
	}
	return Table{
		View:     ViewSegments,
		GroupBy:  store.ColCluster,
		Measures: []string{MeasureDays},
		Rows:     rows,
	}
}

// Summary 头部指标
type Summary struct {
	Days  int     `json:"days"`
	Total int     `json:"total"`
	Mean  float64 `json:"mean"` // 日均租车量
}

// Summarize 计算天数、总租车量和日均租车量
func Summarize(v FilteredView) Summary {
	totals := floatCol(v.Daily, store.ColTotal)
	if len(totals) == 0 {
		return Summary{}
	}
	return Summary{
		Days:  len(totals),
		Total: int(floats.Sum(totals)),
		Mean:  stat.Mean(totals, nil),
	}
}
