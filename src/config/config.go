package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix 环境变量前缀，例如 BIKE_DATA_DIR 覆盖 data.dir；不带前缀的变量不生效
const EnvPrefix = "BIKE"

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Data struct {
		Dir        string `json:"dir" split_words:"true" validate:"required"`         // 数据文件目录
		DailyFile  string `json:"daily_file" split_words:"true" validate:"required"`  // 日粒度数据文件
		HourlyFile string `json:"hourly_file" split_words:"true" validate:"required"` // 小时粒度数据文件
		MergedFile string `json:"merged_file" split_words:"true"`                     // 预合并的日数据文件(可选，替代daily_file)
		Encoding   string `json:"encoding" split_words:"true"`                        // 文件字符集，默认utf-8
		SheetName  string `json:"sheet_name" split_words:"true"`                      // xlsx输入的工作表名
		Watch      bool   `json:"watch" split_words:"true"`                           // 是否监控数据目录
	} `json:"data" split_words:"true"`

	Server struct {
		Addr            string   `json:"addr" split_words:"true" validate:"required"`
		ShutdownTimeout Duration `json:"shutdown_timeout" split_words:"true"`
	} `json:"server" split_words:"true"`

	Report struct {
		Dir           string   `json:"dir" split_words:"true"`            // 报表输出目录
		CheckInterval Duration `json:"check_interval" split_words:"true"` // 定时导出间隔，0表示不启用
	} `json:"report" split_words:"true"`

	LogName    string `json:"log_name" split_words:"true" validate:"required"`
	LogMaxSize string `json:"log_max_size" split_words:"true"`
	PidFile    string `json:"pid_file" split_words:"true"` // 供 SIGHUP 工具定位进程

	SendEmail struct {
		Server        string `json:"server" split_words:"true"`                        // SMTP服务器地址
		Username      string `json:"username" split_words:"true"`                      // 发件邮箱
		Password      string `json:"password" split_words:"true"`                      // 密码/授权码
		To            string `json:"to" split_words:"true" validate:"omitempty,email"` // 收件人
		TargetSubject string `json:"target_subject" split_words:"true"`                // 邮件主题
	} `json:"send_email" split_words:"true"`
}

// DataConfig 数据列映射与解析规则
type DataConfig struct {
	Columns     map[string]string `json:"columns"`      // 逻辑列名 -> 文件中的实际列名
	DateLayouts []string          `json:"date_layouts"` // dteday 允许的日期格式
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

// LoadConfig 只加载一次配置，后续调用返回同一实例
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	// 环境变量覆盖 json 配置，未设置的变量保持原值
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	applyDefaults(cfg, dcfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("配置校验失败: %w", err)
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func applyDefaults(cfg *Config, dcfg *DataConfig) {
	if cfg.Data.Encoding == "" {
		cfg.Data.Encoding = "utf-8"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.LogMaxSize == "" {
		cfg.LogMaxSize = "10 * 1024 * 1024"
	}
	if dcfg.Columns == nil {
		dcfg.Columns = make(map[string]string)
	}
	if len(dcfg.DateLayouts) == 0 {
		dcfg.DateLayouts = []string{"2006-01-02"}
	}
}

// DailyPath 日数据文件完整路径，配置了预合并文件时返回空
func (c *Config) DailyPath() string {
	if c.Data.MergedFile != "" {
		return ""
	}
	return filepath.Join(c.Data.Dir, c.Data.DailyFile)
}

// MergedPath 预合并文件完整路径
func (c *Config) MergedPath() string {
	if c.Data.MergedFile == "" {
		return ""
	}
	return filepath.Join(c.Data.Dir, c.Data.MergedFile)
}

// HourlyPath 小时数据文件完整路径
func (c *Config) HourlyPath() string {
	return filepath.Join(c.Data.Dir, c.Data.HourlyFile)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Decode 实现envconfig.Decoder接口
func (d *Duration) Decode(value string) error {
	if value == "" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Column 返回逻辑列名对应的实际列名，未配置时原样返回
func (dc *DataConfig) Column(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	if col, ok := dc.Columns[name]; ok && col != "" {
		return col
	}
	return name
}

// SetColumn 设置逻辑列名映射
func (dc *DataConfig) SetColumn(name, value string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.Columns == nil {
		dc.Columns = make(map[string]string)
	}
	dc.Columns[name] = value
}

// ColumnMap 返回列映射的副本
func (dc *DataConfig) ColumnMap() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]string, len(dc.Columns))
	for k, v := range dc.Columns {
		out[k] = v
	}
	return out
}
