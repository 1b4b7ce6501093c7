package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// DateLayout 内部统一使用的日期格式
const DateLayout = "2006-01-02"

var serialPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// HasColumn 判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// MissingColumns 返回DataFrame中缺失的列
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	for _, n := range names {
		if !HasColumn(df, n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// ParseDate 依次尝试layouts解析日期，全部失败时按Excel序列号解析
func ParseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(layouts) == 0 {
		layouts = []string{DateLayout}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	if serialPattern.MatchString(s) {
		return ExcelSerialToDate(s)
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// ExcelSerialToDate excel序列号日期转time.Time
func ExcelSerialToDate(s string) (time.Time, error) {
	excelDays, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	if excelDays < 1 {
		return time.Time{}, fmt.Errorf("excel serial %q out of range", s)
	}

	// 以1899-12-30为基准，已包含Excel的1900年闰年误差
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(excelDays)), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WriteSheet 写入一个工作表，第一行为标题
func WriteSheet(f *excelize.File, sheetName string, header []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("创建工作表 %s 失败: %w", sheetName, err)
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return err
	}

	for rowIdx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("写入工作表 %s 第%d行失败: %w", sheetName, rowIdx+2, err)
		}
	}
	return nil
}
