package datapush

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"BikeSharingDashboard/src/processor"
	"BikeSharingDashboard/src/utils"
)

// SummarySheet 汇总工作表名
const SummarySheet = "Summary"

// Report 一次过滤结果的报表
type Report struct {
	Dashboard *processor.Dashboard
	Filter    string // 过滤条件描述
	Generated time.Time
}

// FileName 报表文件名，按生成时间区分
func (r Report) FileName() string {
	return fmt.Sprintf("bike-report-%s.xlsx", r.Generated.Format("20060102-150405"))
}

// Workbook 生成工作簿：Summary 加每个视图一个工作表
func (r Report) Workbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := utils.WriteSheet(f, SummarySheet, []string{"Item", "Value"}, r.summaryRows()); err != nil {
		f.Close()
		return nil, err
	}

	for _, p := range r.Dashboard.Panels {
		header := append([]string{p.Table.GroupBy}, p.Table.Measures...)
		header = append(header, "records")

		rows := make([][]interface{}, 0, len(p.Table.Rows))
		for _, row := range p.Table.Rounded().Rows {
			line := []interface{}{row.Group}
			for _, v := range row.Values {
				line = append(line, int64(v))
			}
			line = append(line, row.Count)
			rows = append(rows, line)
		}
		if err := utils.WriteSheet(f, p.View.Name, header, rows); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (r Report) summaryRows() [][]interface{} {
	s := r.Dashboard.Summary
	rows := [][]interface{}{
		{"Generated", r.Generated.Format("2006-01-02 15:04:05")},
		{"Filter", r.Filter},
		{"Days", s.Days},
		{"Total rentals", s.Total},
		{"Average per day", int64(math.Round(s.Mean))},
	}
	for _, p := range r.Dashboard.Panels {
		if p.Insight != "" {
			rows = append(rows, []interface{}{"Insight: " + p.View.Title, p.Insight})
		}
	}
	return rows
}

// WriteTo 把工作簿写入 w，用于 HTTP 下载
func (r Report) WriteTo(w io.Writer) (int64, error) {
	f, err := r.Workbook()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.WriteTo(w)
}

// Save 保存到文件
func (r Report) Save(path string) error {
	f, err := r.Workbook()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报表失败: %w", err)
	}
	return nil
}
