package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvConfigPath 配置文件路径环境变量
const EnvConfigPath = "COLLAR_CONFIG"

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Env  string `mapstructure:"env" yaml:"env"`
}

// HTTPConfig HTTP 服务配置（仅守护进程模式）
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable" yaml:"enable"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// GPIOConfig 输出线配置
type GPIOConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // rpio | stub
	Pin    int    `mapstructure:"pin" yaml:"pin"`       // BCM 编号
}

// TimingConfig 四分相位时长配置
// QuarterPhaseUsec 非0时跳过校准直接使用
type TimingConfig struct {
	QuarterPhaseUsec int `mapstructure:"quarterPhaseUsec" yaml:"quarterPhaseUsec"`
	TargetRate       int `mapstructure:"targetRate" yaml:"targetRate"`
	Iterations       int `mapstructure:"iterations" yaml:"iterations"`
	MinUnitUsec      int `mapstructure:"minUnitUsec" yaml:"minUnitUsec"`
	MaxUnitUsec      int `mapstructure:"maxUnitUsec" yaml:"maxUnitUsec"`
}

// CommandConfig 默认命令
type CommandConfig struct {
	TransmitterID int    `mapstructure:"transmitterId" yaml:"transmitterId"`
	Channel       int    `mapstructure:"channel" yaml:"channel"` // 1~3
	Mode          string `mapstructure:"mode" yaml:"mode"`       // shock | vibrate | beep
	Strength      int    `mapstructure:"strength" yaml:"strength"`
	Repeat        int    `mapstructure:"repeat" yaml:"repeat"`
}

// AuthConfig API 认证
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	APIKeys []string `mapstructure:"apiKeys" yaml:"apiKeys"`
}

// RateLimitConfig 命令接口限流（令牌桶）
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"perSecond" yaml:"perSecond"`
	Burst     int     `mapstructure:"burst" yaml:"burst"`
}

// APIConfig HTTP 命令接口
type APIConfig struct {
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit"`
	MaxRepeat int             `mapstructure:"maxRepeat" yaml:"maxRepeat"` // 单次请求重复上限，0 不限
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app" yaml:"app"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	GPIO    GPIOConfig    `mapstructure:"gpio" yaml:"gpio"`
	Timing  TimingConfig  `mapstructure:"timing" yaml:"timing"`
	Command CommandConfig `mapstructure:"command" yaml:"command"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 COLLAR_CONFIG 读取；否则回退到 ./configs/collar.yaml（可缺省）。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("collar")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 COLLAR_，并将点号替换为下划线
	v.SetEnvPrefix("COLLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "collar-tx")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 20)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("gpio.driver", "rpio")
	v.SetDefault("gpio.pin", 17) // wiringPi 0

	v.SetDefault("timing.quarterPhaseUsec", 0)
	v.SetDefault("timing.targetRate", 4000)
	v.SetDefault("timing.iterations", 10)
	v.SetDefault("timing.minUnitUsec", 10)
	v.SetDefault("timing.maxUnitUsec", 10000)

	v.SetDefault("command.transmitterId", 46231)
	v.SetDefault("command.channel", 1)
	v.SetDefault("command.mode", "beep")
	v.SetDefault("command.strength", 0)
	v.SetDefault("command.repeat", 1)

	v.SetDefault("api.auth.enabled", false)
	v.SetDefault("api.auth.apiKeys", []string{})
	v.SetDefault("api.rateLimit.perSecond", 2)
	v.SetDefault("api.rateLimit.burst", 4)
	v.SetDefault("api.maxRepeat", 100)
}

// Validate 配置校验（命令参数的取值范围由 collar.NewCommand 负责）
func (c *Config) Validate() error {
	switch strings.ToLower(c.GPIO.Driver) {
	case "rpio", "stub":
	default:
		return fmt.Errorf("config: unknown gpio driver %q (rpio|stub)", c.GPIO.Driver)
	}
	if c.Timing.QuarterPhaseUsec < 0 {
		return fmt.Errorf("config: timing.quarterPhaseUsec must be >= 0, got %d", c.Timing.QuarterPhaseUsec)
	}
	if c.Timing.TargetRate <= 0 || c.Timing.TargetRate > 1_000_000 {
		return fmt.Errorf("config: timing.targetRate out of range: %d", c.Timing.TargetRate)
	}
	if c.Timing.Iterations <= 0 {
		return fmt.Errorf("config: timing.iterations must be > 0, got %d", c.Timing.Iterations)
	}
	if c.Timing.MinUnitUsec < 0 || c.Timing.MaxUnitUsec < 0 ||
		(c.Timing.MaxUnitUsec > 0 && c.Timing.MinUnitUsec > c.Timing.MaxUnitUsec) {
		return fmt.Errorf("config: invalid timing bounds [%d, %d]", c.Timing.MinUnitUsec, c.Timing.MaxUnitUsec)
	}
	if c.API.MaxRepeat < 0 {
		return fmt.Errorf("config: api.maxRepeat must be >= 0, got %d", c.API.MaxRepeat)
	}
	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return fmt.Errorf("config: api.auth enabled without apiKeys")
	}
	return nil
}
