package processor

import "math"

// Row 聚合结果的一行，Values 与 Table.Measures 一一对应
type Row struct {
	Group  string    `json:"group"`
	Values []float64 `json:"values"`
	Count  int       `json:"count"` // 参与聚合的记录数
}

// Table 小型有序聚合表，数值保持全精度
type Table struct {
	View     string   `json:"view"`
	GroupBy  string   `json:"group_by"`
	Measures []string `json:"measures"`
	Rows     []Row    `json:"rows"`
}

// LongRow 宽表展开后的一行
type LongRow struct {
	Group   string  `json:"group"`
	Measure string  `json:"measure"`
	Value   float64 `json:"value"`
}

// Groups 按顺序返回分组标签
func (t Table) Groups() []string {
	groups := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		groups[i] = r.Group
	}
	return groups
}

// Value 查找某分组某度量的值
func (t Table) Value(group, measure string) (float64, bool) {
	m := t.measureIndex(measure)
	if m < 0 {
		return 0, false
	}
	for _, r := range t.Rows {
		if r.Group == group {
			return r.Values[m], true
		}
	}
	return 0, false
}

func (t Table) measureIndex(measure string) int {
	for i, name := range t.Measures {
		if name == measure {
			return i
		}
	}
	return -1
}

// Column 某度量按行顺序的全部值
func (t Table) Column(measure string) []float64 {
	m := t.measureIndex(measure)
	if m < 0 {
		return nil
	}
	values := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r.Values[m]
	}
	return values
}

// Rounded 展示用：数值四舍五入到整数，原表不变
func (t Table) Rounded() Table {
	out := t
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		values := make([]float64, len(r.Values))
		for j, v := range r.Values {
			values[j] = math.Round(v)
		}
		out.Rows[i] = Row{Group: r.Group, Values: values, Count: r.Count}
	}
	return out
}

// Melt 把 (分组, 度量1, 度量2...) 展开为 (分组, 度量, 值) 长表
func (t Table) Melt() []LongRow {
	long := make([]LongRow, 0, len(t.Rows)*len(t.Measures))
	for _, measure := range t.Measures {
		m := t.measureIndex(measure)
		for _, r := range t.Rows {
			long = append(long, LongRow{Group: r.Group, Measure: measure, Value: r.Values[m]})
		}
	}
	return long
}
