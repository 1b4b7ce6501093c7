package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDataNotFound 必需的数据文件不存在
	ErrDataNotFound = errors.New("data file not found")
	// ErrMalformedData 数据无法解析或违反约束
	ErrMalformedData = errors.New("malformed data")
	// ErrMissingColumn 缺少必需列
	ErrMissingColumn = errors.New("missing column")
	// ErrAdditiveInvariant cnt 不等于 casual + registered
	ErrAdditiveInvariant = errors.New("cnt does not equal casual + registered")
	// ErrDerivedMismatch 预合并文件中的派生列与重新计算的结果不一致
	ErrDerivedMismatch = errors.New("derived column does not match source columns")
)

// DataNotFoundError 数据文件缺失，会话应终止
type DataNotFoundError struct {
	Path string
	Err  error
}

func (e *DataNotFoundError) Error() string {
	if e.Path == "" {
		return "data file not found: path not configured"
	}
	return fmt.Sprintf("data file not found: %s", e.Path)
}

func (e *DataNotFoundError) Unwrap() error { return e.Err }

func (e *DataNotFoundError) Is(target error) bool { return target == ErrDataNotFound }

// MalformedDataError 数据格式错误，整个加载失败
type MalformedDataError struct {
	Path   string
	Line   int // 文件中的行号(标题为第1行)，0 表示文件级错误
	Column string
	Value  string
	Err    error
}

func (e *MalformedDataError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("malformed data in %s line %d column %s (%q): %v", e.Path, e.Line, e.Column, e.Value, e.Err)
	case e.Column != "":
		return fmt.Sprintf("malformed data in %s column %s: %v", e.Path, e.Column, e.Err)
	default:
		return fmt.Sprintf("malformed data in %s: %v", e.Path, e.Err)
	}
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

func (e *MalformedDataError) Is(target error) bool { return target == ErrMalformedData }
