package datapush

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"

	"BikeSharingDashboard/src/processor"
	"BikeSharingDashboard/src/storage"
)

// Source 提供导出所用的过滤视图及其描述
type Source func() (processor.FilteredView, string, error)

// Exporter 定时生成报表并可选地发送邮件
type Exporter struct {
	dir    string
	source Source
	mailer *Mailer
	logger *storage.Logger
	now    func() time.Time
}

// NewExporter 创建导出器，mailer 为 nil 或未配置时只写文件
func NewExporter(dir string, source Source, mailer *Mailer, logger *storage.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		source: source,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}
}

// Export 生成一次报表，返回文件路径
func (e *Exporter) Export() (string, error) {
	start := time.Now()

	view, filter, err := e.source()
	if err != nil {
		return "", fmt.Errorf("加载数据失败: %w", err)
	}
	dashboard, err := processor.Run(view)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("创建报表目录失败: %w", err)
	}
	report := Report{Dashboard: dashboard, Filter: filter, Generated: e.now()}
	path := filepath.Join(e.dir, report.FileName())
	if err := report.Save(path); err != nil {
		return "", err
	}
	e.logger.Info("报表已生成", zap.String("path", path), storage.Since(start))

	if e.mailer.Enabled() {
		body := fmt.Sprintf("%d days, %s rentals, %s per day on average.",
			dashboard.Summary.Days,
			processor.FormatCount(float64(dashboard.Summary.Total)),
			processor.FormatCount(dashboard.Summary.Mean))
		if err := e.mailer.Send(body, path); err != nil {
			return path, err
		}
		e.logger.Info("报表邮件发送成功", zap.String("path", path))
	}
	return path, nil
}

// Schedule 按间隔启动定时导出，interval 为 0 时不启动
func (e *Exporter) Schedule(interval time.Duration) (*cron.Cron, error) {
	if interval <= 0 {
		return nil, nil
	}

	c := cron.New()
	cronSpec := fmt.Sprintf("@every %s", interval)
	err := c.AddFunc(cronSpec, func() {
		e.logger.Info(fmt.Sprintf("开始定时导出(间隔: %v)...", cronSpec))
		if _, err := e.Export(); err != nil {
			if errors.Is(err, processor.ErrEmptyResult) {
				e.logger.Warning("没有可导出的数据")
				return
			}
			e.logger.Error("定时导出失败", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("创建定时任务失败: %w", err)
	}

	c.Start()
	return c, nil
}
