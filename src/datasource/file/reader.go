// reader.go
package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrUnsupportedFormat 不支持的文件扩展名
var ErrUnsupportedFormat = errors.New("unsupported table format")

// ReadOptions 读取表格的选项
type ReadOptions struct {
	Encoding  string // 文本文件字符集，空值或utf-8不做转换
	SheetName string // xlsx工作表名，空值取第一个工作表
}

// ReadTable 按扩展名读取表格文件，所有列均以字符串类型读入，类型转换由调用方负责
func ReadTable(filePath string, opts ReadOptions) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv", ".txt":
		return ReadDelimited(filePath, ',', opts.Encoding)
	case ".tsv":
		return ReadDelimited(filePath, '\t', opts.Encoding)
	case ".xlsx":
		return ReadXLSX(filePath, opts.SheetName)
	default:
		return dataframe.New(), fmt.Errorf("%s: %w", filePath, ErrUnsupportedFormat)
	}
}

// ReadDelimited 读取分隔符文本文件
func ReadDelimited(filePath string, delimiter rune, encoding string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("failed to open table file: %w", err)
	}
	defer f.Close()

	r, err := decodeReader(f, encoding)
	if err != nil {
		return dataframe.New(), err
	}

	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter(delimiter),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("failed to parse %s: %w", filePath, df.Err)
	}
	return df, nil
}

// decodeReader 按字符集包装reader，例如 gbk、latin1
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// ReadXLSX 读取xlsx文件的指定工作表，第一行为标题行
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("xlsx open file false: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("工作表 %s 不存在: %s", sheetName, filePath)
		}
		sheet = s
	}

	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.New(), fmt.Errorf("工作表 %s 为空", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	// 中间的空行保留为空值，保证行号与工作表一致；只去掉末尾的空行
	records := make([][]string, 0, len(sheet.Rows))
	records = append(records, headers)
	last := 0
	for _, row := range sheet.Rows[1:] {
		values := make([]string, len(headers))
		if row != nil {
			for i, cell := range row.Cells {
				if i >= len(headers) { // 确保不超出列数范围
					break
				}
				values[i] = strings.TrimSpace(cell.Value)
				if values[i] != "" {
					last = len(records)
				}
			}
		}
		records = append(records, values)
	}
	records = records[:last+1]

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}

// GetTargetFolder 以可执行文件为基准向上level层定位目录
func GetTargetFolder(folderName string, level int) (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	path := exePath
	for i := 0; i < level; i++ {
		path = filepath.Dir(path)
	}

	return filepath.Join(path, folderName), nil
}

// ResolveDir 相对路径在工作目录下不存在时，改为相对可执行文件所在目录
func ResolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	target, err := GetTargetFolder(dir, 1)
	if err != nil {
		return dir
	}
	return target
}
