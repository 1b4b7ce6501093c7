package processor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"BikeSharingDashboard/src/store"
	"BikeSharingDashboard/src/utils"
)

// DateRange 闭区间 [Start, End]
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains 日期是否落在区间内
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// FilterSpec 过滤条件，空集合表示该维度不过滤
type FilterSpec struct {
	DateRange *DateRange
	Years     []int
	Seasons   []store.Season
	Weathers  []store.Weather
}

// AllInclusive 覆盖整个数据集的过滤条件，日期区间同时包含日表和小时表
func AllInclusive(s *store.RecordStore) FilterSpec {
	var spec FilterSpec
	min, max, ok := s.DateBounds()
	for _, rec := range s.HourlyRecords() {
		if !ok {
			min, max, ok = rec.Date, rec.Date, true
			continue
		}
		if rec.Date.Before(min) {
			min = rec.Date
		}
		if rec.Date.After(max) {
			max = rec.Date
		}
	}
	if ok {
		spec.DateRange = &DateRange{Start: min, End: max}
	}
	return spec
}

// Matches 日记录是否满足过滤条件
func (f FilterSpec) Matches(rec store.Record) bool {
	return f.match(rec.Date, rec.Year, rec.Season, rec.Weather)
}

func (f FilterSpec) match(date time.Time, year int, season store.Season, weather store.Weather) bool {
	if f.DateRange != nil && !f.DateRange.Contains(date) {
		return false
	}
	if len(f.Years) > 0 && !utils.Contains(f.Years, year) {
		return false
	}
	if len(f.Seasons) > 0 && !utils.Contains(f.Seasons, season) {
		return false
	}
	if len(f.Weathers) > 0 && !utils.Contains(f.Weathers, weather) {
		return false
	}
	return true
}

// filters 转换为 gota 的列过滤器，各过滤器之间为 And 关系
func (f FilterSpec) filters() []dataframe.F {
	var filters []dataframe.F

	if f.DateRange != nil {
		start := f.DateRange.Start.Format(utils.DateLayout)
		end := f.DateRange.End.Format(utils.DateLayout)
		// ISO 日期字符串的字典序即时间顺序
		filters = append(filters, dataframe.F{
			Colname:    store.ColDate,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				d := el.String()
				return d >= start && d <= end
			},
		})
	}
	if len(f.Years) > 0 {
		years := f.Years
		filters = append(filters, dataframe.F{
			Colname:    store.ColYear,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				y, err := el.Int()
				return err == nil && utils.Contains(years, y)
			},
		})
	}
	if len(f.Seasons) > 0 {
		labels := make([]string, 0, len(f.Seasons))
		for _, s := range f.Seasons {
			labels = append(labels, s.String())
		}
		filters = append(filters, labelFilter(store.ColSeasonLabel, labels))
	}
	if len(f.Weathers) > 0 {
		labels := make([]string, 0, len(f.Weathers))
		for _, w := range f.Weathers {
			labels = append(labels, w.String())
		}
		filters = append(filters, labelFilter(store.ColWeatherLabel, labels))
	}
	return filters
}

func labelFilter(col string, labels []string) dataframe.F {
	return dataframe.F{
		Colname:    col,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return !el.IsNA() && utils.Contains(labels, el.String())
		},
	}
}

// String 过滤条件的可读描述，写入报表
func (f FilterSpec) String() string {
	var parts []string
	if f.DateRange != nil {
		parts = append(parts, fmt.Sprintf("%s to %s",
			f.DateRange.Start.Format(utils.DateLayout), f.DateRange.End.Format(utils.DateLayout)))
	}
	if len(f.Years) > 0 {
		years := make([]string, len(f.Years))
		for i, y := range f.Years {
			years[i] = strconv.Itoa(y)
		}
		parts = append(parts, "years "+strings.Join(years, ", "))
	}
	if len(f.Seasons) > 0 {
		labels := make([]string, len(f.Seasons))
		for i, s := range f.Seasons {
			labels[i] = s.String()
		}
		parts = append(parts, "seasons "+strings.Join(labels, ", "))
	}
	if len(f.Weathers) > 0 {
		labels := make([]string, len(f.Weathers))
		for i, w := range f.Weathers {
			labels[i] = w.String()
		}
		parts = append(parts, "weather "+strings.Join(labels, ", "))
	}
	if len(parts) == 0 {
		return "all records"
	}
	return strings.Join(parts, "; ")
}

// FilteredView 过滤后的日数据和小时数据，与 RecordStore 相互独立
type FilteredView struct {
	Spec   FilterSpec
	Daily  dataframe.DataFrame
	Hourly dataframe.DataFrame
}

// Empty 日数据为空
func (v FilteredView) Empty() bool {
	return v.Daily.Nrow() == 0
}

// Apply 按过滤条件筛选数据集，不修改 RecordStore；无匹配时返回空视图
func Apply(s *store.RecordStore, spec FilterSpec) FilteredView {
	return FilteredView{
		Spec:   spec,
		Daily:  filterFrame(s.Daily(), spec),
		Hourly: filterFrame(s.Hourly(), spec),
	}
}

func filterFrame(df dataframe.DataFrame, spec FilterSpec) dataframe.DataFrame {
	filters := spec.filters()
	if len(filters) == 0 || df.Nrow() == 0 {
		return df
	}
	return df.FilterAggregation(dataframe.And, filters...)
}
