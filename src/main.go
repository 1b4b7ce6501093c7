package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"BikeSharingDashboard/src/config"
	"BikeSharingDashboard/src/datapush"
	"BikeSharingDashboard/src/datasource/file"
	"BikeSharingDashboard/src/processor"
	"BikeSharingDashboard/src/storage"
	"BikeSharingDashboard/src/store"
	"BikeSharingDashboard/src/web"
)

func main() {
	// .env 可选，不存在时只用配置文件和环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println("读取.env失败:", err)
	}

	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName, cfg.LogMaxSize)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, dcfg, logger); err != nil {
		logger.Fatal("服务异常退出", zap.Error(err))
		logger.Close()
		os.Exit(1)
	}
	logger.Info("服务已停止")
	logger.Close()
}

// dataPaths 根据配置得到数据文件路径，相对目录按可执行文件位置兜底
func dataPaths(cfg *config.Config) store.Paths {
	cfg.Data.Dir = file.ResolveDir(cfg.Data.Dir)
	return store.Paths{
		Daily:  cfg.DailyPath(),
		Hourly: cfg.HourlyPath(),
		Merged: cfg.MergedPath(),
	}
}

func loadOptions(cfg *config.Config, dcfg *config.DataConfig) store.Options {
	return store.Options{
		Encoding:    cfg.Data.Encoding,
		SheetName:   cfg.Data.SheetName,
		Columns:     dcfg.ColumnMap(),
		DateLayouts: dcfg.DateLayouts,
	}
}

func run(ctx context.Context, cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) error {
	paths := dataPaths(cfg)
	opts := loadOptions(cfg, dcfg)

	cache := store.NewCache(logger)
	server := web.NewServer(cache, paths, opts, logger)

	// 数据缺失或格式错误时直接终止
	t1 := time.Now()
	rs, err := server.Load()
	if err != nil {
		return fmt.Errorf("加载数据失败: %w", err)
	}
	logger.Info(fmt.Sprintf("数据加载时间：%v", time.Since(t1)), zap.Int("days", rs.Len()))

	if err := writePidFile(cfg.PidFile); err != nil {
		logger.Warning("写入pid文件失败", zap.Error(err))
	} else if cfg.PidFile != "" {
		defer os.Remove(cfg.PidFile)
	}

	if cfg.Data.Watch {
		monitor, err := file.NewFileMonitor(cfg.Data.Dir)
		if err != nil {
			logger.Error("创建文件监控失败", zap.Error(err))
		} else {
			defer monitor.Close()
			go watchData(ctx, monitor, cache, logger)
		}
	}

	exporter := datapush.NewExporter(cfg.Report.Dir, func() (processor.FilteredView, string, error) {
		rs, err := server.Load()
		if err != nil {
			return processor.FilteredView{}, "", err
		}
		spec := processor.AllInclusive(rs)
		return processor.Apply(rs, spec), spec.String(), nil
	}, datapush.NewMailer(cfg), logger)
	scheduler, err := exporter.Schedule(time.Duration(cfg.Report.CheckInterval))
	if err != nil {
		logger.Error("创建定时任务失败", zap.Error(err))
	} else if scheduler != nil {
		defer scheduler.Stop()
		logger.Info(fmt.Sprintf("定时导出已启动(间隔: %v)", time.Duration(cfg.Report.CheckInterval)))
	}

	go handleHangup(ctx, cache, logger)

	return server.ListenAndServe(ctx, cfg.Server.Addr, time.Duration(cfg.Server.ShutdownTimeout))
}

// watchData 数据文件变化时清除对应缓存，下次请求重新加载
func watchData(ctx context.Context, monitor *file.FileMonitor, cache *store.Cache, logger *storage.Logger) {
	logger.Info("开始监控数据目录", zap.String("dir", monitor.Dir()))
	err := monitor.Watch(ctx, func(name string) {
		if n := cache.InvalidateFile(name); n > 0 {
			logger.Info("数据文件已变更，缓存失效", zap.String("file", filepath.Base(name)), zap.Int("entries", n))
		}
	})
	if err != nil {
		logger.Error("文件监控异常", zap.Error(err))
	}
}

// handleHangup SIGHUP 时轮转日志并清空缓存
func handleHangup(ctx context.Context, cache *store.Cache, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			if err := logger.Rotate(); err != nil {
				logger.Error("日志轮转失败", zap.Error(err))
			}
			cache.Reset()
			logger.Info("Received signal: SIGHUP, log rotated and cache cleared")
		case <-ctx.Done():
			return
		}
	}
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}
