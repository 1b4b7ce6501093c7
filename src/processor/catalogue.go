package processor

import "errors"

// ErrEmptyResult 过滤后没有任何记录，不进行聚合
var ErrEmptyResult = errors.New("no records match the filter")

// 视图名
const (
	ViewSeason          = "season"
	ViewWorkingDay      = "workingday"
	ViewHourly          = "hourly"
	ViewWeather         = "weather"
	ViewWeatherResponse = "weather-response"
	ViewSegments        = "segments"
)

// ChartKind 前端绘图类型
type ChartKind string

const (
	Bar  ChartKind = "bar"
	Line ChartKind = "line"
)

// View 聚合目录中的一项
type View struct {
	Name   string    `json:"name"`
	Title  string    `json:"title"`
	XLabel string    `json:"x_label"`
	YLabel string    `json:"y_label"`
	Kind   ChartKind `json:"kind"`

	compute func(FilteredView) Table
	insight func(Table) string
}

var catalogue = []View{
	{
		Name: ViewSeason, Title: "Average Rentals per Season: Casual vs Registered",
		XLabel: "Season", YLabel: "Average rentals", Kind: Bar,
		compute: SeasonMeans, insight: seasonInsight,
	},
	{
		Name: ViewWorkingDay, Title: "Average Rentals: Working Day vs Non-working Day",
		XLabel: "", YLabel: "Total rentals", Kind: Bar,
		compute: WorkingDayTotals, insight: workingDayInsight,
	},
	{
		Name: ViewHourly, Title: "Hourly Usage Pattern: Casual vs Registered",
		XLabel: "Hour", YLabel: "Average rentals", Kind: Line,
		compute: HourlyMeans, insight: hourlyInsight,
	},
	{
		Name: ViewWeather, Title: "Effect of Weather on Total Rentals",
		XLabel: "Weather", YLabel: "Total rentals", Kind: Bar,
		compute: WeatherTotals, insight: weatherInsight,
	},
	{
		Name: ViewWeatherResponse, Title: "Weather Response: Casual vs Registered",
		XLabel: "Weather", YLabel: "Average rentals", Kind: Line,
		compute: WeatherMeans, insight: weatherResponseInsight,
	},
	{
		Name: ViewSegments, Title: "Day Segmentation",
		XLabel: "Day segment", YLabel: "Number of days", Kind: Bar,
		compute: SegmentCounts, insight: segmentInsight,
	},
}

// Catalogue 全部视图，顺序固定
func Catalogue() []View {
	out := make([]View, len(catalogue))
	copy(out, catalogue)
	return out
}

// LookupView 按名称查找视图
func LookupView(name string) (View, bool) {
	for _, v := range catalogue {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// Compute 计算视图对应的聚合表
func (v View) Compute(fv FilteredView) Table {
	return v.compute(fv)
}

// Insight 根据聚合结果生成说明文字
func (v View) Insight(t Table) string {
	if len(t.Rows) == 0 {
		return ""
	}
	return v.insight(t)
}

// Panel 一个视图的完整结果
type Panel struct {
	View    View   `json:"view"`
	Table   Table  `json:"table"`
	Insight string `json:"insight"`
}

// Dashboard 一次过滤对应的全部结果
type Dashboard struct {
	Summary Summary `json:"summary"`
	Panels  []Panel `json:"panels"`
}

// Panel 按视图名取结果
func (d *Dashboard) Panel(name string) (Panel, bool) {
	for _, p := range d.Panels {
		if p.View.Name == name {
			return p, true
		}
	}
	return Panel{}, false
}

// Run 计算全部视图；过滤结果为空时返回 ErrEmptyResult
func Run(fv FilteredView) (*Dashboard, error) {
	if fv.Empty() {
		return nil, ErrEmptyResult
	}

	d := &Dashboard{
		Summary: Summarize(fv),
		Panels:  make([]Panel, 0, len(catalogue)),
	}
	for _, v := range catalogue {
		t := v.Compute(fv)
		d.Panels = append(d.Panels, Panel{View: v, Table: t, Insight: v.Insight(t)})
	}
	return d, nil
}

// RunView 只计算一个视图
func RunView(fv FilteredView, name string) (Panel, error) {
	v, ok := LookupView(name)
	if !ok {
		return Panel{}, &UnknownViewError{Name: name}
	}
	if fv.Empty() {
		return Panel{}, ErrEmptyResult
	}
	t := v.Compute(fv)
	return Panel{View: v, Table: t, Insight: v.Insight(t)}, nil
}

// UnknownViewError 视图名不在目录中
type UnknownViewError struct {
	Name string
}

func (e *UnknownViewError) Error() string {
	return "unknown view: " + e.Name
}
