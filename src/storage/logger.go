package storage

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误
)

const subscriberBuffer = 100

// Logger 日志记录器结构体
type Logger struct {
	zl          *zap.Logger
	rotator     *lumberjack.Logger // 为nil时表示写入外部writer
	mu          sync.Mutex         // 保护订阅者列表
	subscribers []chan string      // 订阅者通道列表
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径
//	maxSize: 单个日志文件的最大字节数表达式，如 "10 * 1024 * 1024"
//
// 返回值:
//
//	*Logger: 日志记录器实例
//	error: 创建过程中的错误
func NewLogger(filename, maxSize string) (*Logger, error) {
	if filename == "" {
		return nil, fmt.Errorf("日志文件名为空")
	}
	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    megabytes(eval(maxSize)),
		MaxBackups: 5,
		LocalTime:  true,
	}
	l := newLogger(zapcore.AddSync(rotator))
	l.rotator = rotator
	return l, nil
}

// NewWriterLogger 创建写入任意writer的日志记录器，主要用于测试和标准输出
func NewWriterLogger(w io.Writer) *Logger {
	return newLogger(zapcore.AddSync(w))
}

func newLogger(ws zapcore.WriteSyncer) *Logger {
	l := &Logger{}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, zapcore.DebugLevel)

	l.zl = zap.New(core, zap.Hooks(l.broadcast))
	return l
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// Rotate 立即切割日志文件(SIGHUP时调用)
func (l *Logger) Rotate() error {
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Rotate()
}

// Log 记录日志方法
// 参数:
//
//	level: 日志级别
//	message: 日志消息内容
//	fields: 结构化字段
func (l *Logger) Log(level LogLevel, message string, fields ...zap.Field) {
	if level == FATAL {
		// 致命错误只做记录，由调用方决定是否退出
		fields = append(fields, zap.Bool("fatal", true))
	}
	if ce := l.zl.Check(level.zapLevel(), message); ce != nil {
		ce.Write(fields...)
	}
}

// broadcast 通知所有订阅者，通道已满则跳过
func (l *Logger) broadcast(entry zapcore.Entry) error {
	line := fmt.Sprintf("[%s] %s: %s",
		entry.Time.Format("2006-01-02 15:04:05"),
		fromZapLevel(entry.Level).String(),
		entry.Message)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
	return nil
}

// Subscribe 订阅日志消息
// 返回值:
//
//	<-chan string: 只读通道，用于接收日志消息
func (l *Logger) Subscribe() <-chan string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Unsubscribe 取消订阅并关闭通道
func (l *Logger) Unsubscribe(sub <-chan string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, ch := range l.subscribers {
		if (<-chan string)(ch) == sub {
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// String 实现LogLevel的String方法
// 返回值:
//
//	string: 日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARNING:
		return zapcore.WarnLevel
	default:
		// FATAL 同样按 ERROR 写入，避免 zap 直接退出进程
		return zapcore.ErrorLevel
	}
}

func fromZapLevel(lvl zapcore.Level) LogLevel {
	switch lvl {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.InfoLevel:
		return INFO
	case zapcore.WarnLevel:
		return WARNING
	case zapcore.ErrorLevel:
		return ERROR
	default:
		return FATAL
	}
}

// eval 计算形如 "10 * 1024 * 1024" 的乘法表达式
func eval(expr string) int64 {
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		result *= num
	}
	return result
}

// megabytes lumberjack 按MB计算，至少1MB
func megabytes(size int64) int {
	mb := int(size / (1024 * 1024))
	if mb < 1 {
		return 1
	}
	return mb
}

// Since 便于记录耗时
func Since(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, fields ...zap.Field)   { l.Log(DEBUG, msg, fields...) }   // 记录调试信息
func (l *Logger) Info(msg string, fields ...zap.Field)    { l.Log(INFO, msg, fields...) }    // 记录普通信息
func (l *Logger) Warning(msg string, fields ...zap.Field) { l.Log(WARNING, msg, fields...) } // 记录警告信息
func (l *Logger) Error(msg string, fields ...zap.Field)   { l.Log(ERROR, msg, fields...) }   // 记录错误信息
func (l *Logger) Fatal(msg string, fields ...zap.Field)   { l.Log(FATAL, msg, fields...) }   // 记录致命错误
