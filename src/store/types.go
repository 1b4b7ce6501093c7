package store

import (
	"strings"
	"time"

	"BikeSharingDashboard/src/segment"
)

// 逻辑列名，对应原始数据文件的标题，可通过 DataConfig.Columns 重新映射
const (
	ColDate       = "dteday"
	ColSeason     = "season"
	ColWeather    = "weathersit"
	ColWorkingDay = "workingday"
	ColCasual     = "casual"
	ColRegistered = "registered"
	ColTotal      = "cnt"
	ColHour       = "hr"
)

// 派生列名，加载时计算一次
const (
	ColYear         = "year"
	ColSeasonLabel  = "season_label"
	ColWeatherLabel = "weathersit_label"
	ColCasualRatio  = "casual_ratio"
	ColCluster      = "user_cluster"
)

// naLabel gota 字符串列中的缺失值
const naLabel = "NaN"

// Season 季节编码
type Season int

const (
	Spring Season = iota + 1
	Summer
	Fall
	Winter
)

var seasonLabels = map[Season]string{
	Spring: "Spring",
	Summer: "Summer",
	Fall:   "Fall",
	Winter: "Winter",
}

// SeasonOrder 季节的规范顺序
var SeasonOrder = []Season{Spring, Summer, Fall, Winter}

// String 未映射的编码返回空串
func (s Season) String() string {
	return seasonLabels[s]
}

// Valid 是否为已知季节
func (s Season) Valid() bool {
	_, ok := seasonLabels[s]
	return ok
}

// SeasonFromCode 查表转换季节编码
func SeasonFromCode(code int) (Season, bool) {
	s := Season(code)
	return s, s.Valid()
}

// ParseSeason 按显示标签查找季节，不区分大小写
func ParseSeason(label string) (Season, bool) {
	for _, s := range SeasonOrder {
		if strings.EqualFold(s.String(), label) {
			return s, true
		}
	}
	return 0, false
}

// Weather 天气编码
type Weather int

const (
	Clear Weather = iota + 1
	Mist
	LightRainSnow
	HeavyRainSnow
)

var weatherLabels = map[Weather]string{
	Clear:         "Clear",
	Mist:          "Mist",
	LightRainSnow: "Light Rain/Snow",
	HeavyRainSnow: "Heavy Rain/Snow",
}

// WeatherOrder 天气的规范顺序
var WeatherOrder = []Weather{Clear, Mist, LightRainSnow, HeavyRainSnow}

// String 未映射的编码返回空串
func (w Weather) String() string {
	return weatherLabels[w]
}

// Valid 是否为已知天气
func (w Weather) Valid() bool {
	_, ok := weatherLabels[w]
	return ok
}

// WeatherFromCode 查表转换天气编码
func WeatherFromCode(code int) (Weather, bool) {
	w := Weather(code)
	return w, w.Valid()
}

// ParseWeather 按显示标签查找天气，不区分大小写
func ParseWeather(label string) (Weather, bool) {
	for _, w := range WeatherOrder {
		if strings.EqualFold(w.String(), label) {
			return w, true
		}
	}
	return 0, false
}

// Record 日粒度记录，Total 恒等于 Casual+Registered
type Record struct {
	Date        time.Time
	Year        int
	Season      Season // 0 表示编码未映射
	Weather     Weather
	WorkingDay  bool
	Casual      int
	Registered  int
	Total       int
	CasualRatio float64 // Total 为 0 时为 NaN
	Segment     segment.Segment
}

// HourlyRecord 小时粒度记录，季节与天气按日期从日数据关联
type HourlyRecord struct {
	Date       time.Time
	Year       int
	Hour       int
	Casual     int
	Registered int
	Total      int
	Season     Season
	Weather    Weather
}

// Paths 数据文件路径；Merged 非空时替代 Daily
type Paths struct {
	Daily  string
	Hourly string
	Merged string
}

// DailySource 实际读取的日数据文件
func (p Paths) DailySource() string {
	if p.Merged != "" {
		return p.Merged
	}
	return p.Daily
}

// Files 所有会被读取的文件
func (p Paths) Files() []string {
	return []string{p.DailySource(), p.Hourly}
}
