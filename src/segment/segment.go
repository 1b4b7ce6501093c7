// Package segment 按散客比例把每天划分为固定的三类用户行为分段。
//
// 分段边界为 [0, 15, 30, 100]：第一段两端闭合，其余为左开右闭。
package segment

import "math"

// Segment 用户行为分段
type Segment string

const (
	Komuter      Segment = "Komuter"  // 通勤为主
	Transisi     Segment = "Transisi" // 过渡
	Rekreasi     Segment = "Rekreasi" // 休闲为主
	Unclassified Segment = ""         // total为0，无法计算比例
)

// 分段边界
const (
	MinRatio      = 0.0
	KomuterUpper  = 15.0
	TransisiUpper = 30.0
	MaxRatio      = 100.0
)

// Order 分段的规范顺序
var Order = []Segment{Komuter, Transisi, Rekreasi}

func (s Segment) String() string {
	if s == Unclassified {
		return "Unclassified"
	}
	return string(s)
}

// Valid 是否为三个已知分段之一
func (s Segment) Valid() bool {
	switch s {
	case Komuter, Transisi, Rekreasi:
		return true
	}
	return false
}

// Parse 解析分段标签，未知标签返回false
func Parse(label string) (Segment, bool) {
	s := Segment(label)
	return s, s.Valid()
}

// CasualRatio 散客占总量的百分比，total为0时ok为false
func CasualRatio(casual, total int) (ratio float64, ok bool) {
	if total == 0 {
		return math.NaN(), false
	}
	return float64(casual) / float64(total) * 100, true
}

// Clamp 将比例限制在[0,100]，返回是否发生了截断
func Clamp(ratio float64) (float64, bool) {
	switch {
	case ratio < MinRatio:
		return MinRatio, true
	case ratio > MaxRatio:
		return MaxRatio, true
	}
	return ratio, false
}

// Classify 纯函数：同一比例总是得到同一分段；NaN 返回 Unclassified，越界值先截断
func Classify(ratio float64) Segment {
	if math.IsNaN(ratio) {
		return Unclassified
	}
	ratio, _ = Clamp(ratio)
	switch {
	case ratio <= KomuterUpper:
		return Komuter
	case ratio <= TransisiUpper:
		return Transisi
	default:
		return Rekreasi
	}
}
