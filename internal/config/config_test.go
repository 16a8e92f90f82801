package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeYAML(t *testing.T, v any) string {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "collar.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "collar-tx", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "rpio", cfg.GPIO.Driver)
	assert.Equal(t, 17, cfg.GPIO.Pin)
	assert.Equal(t, 0, cfg.Timing.QuarterPhaseUsec)
	assert.Equal(t, 4000, cfg.Timing.TargetRate)
	assert.Equal(t, 10, cfg.Timing.Iterations)
	assert.Equal(t, 10, cfg.Timing.MinUnitUsec, "默认启用校准结果范围检查")
	assert.Equal(t, 10000, cfg.Timing.MaxUnitUsec)
	assert.Equal(t, 100, cfg.API.MaxRepeat)
	assert.Equal(t, 46231, cfg.Command.TransmitterID)
	assert.Equal(t, 1, cfg.Command.Channel)
	assert.Equal(t, "beep", cfg.Command.Mode)
	assert.Equal(t, 1, cfg.Command.Repeat)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeYAML(t, map[string]any{
		"gpio":    map[string]any{"driver": "stub", "pin": 4},
		"timing":  map[string]any{"quarterPhaseUsec": 179},
		"command": map[string]any{"transmitterId": 1234, "channel": 2, "mode": "vibrate", "strength": 30, "repeat": 3},
		"http":    map[string]any{"writeTimeout": "45s"},
	})
	t.Setenv("COLLAR_COMMAND_REPEAT", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "stub", cfg.GPIO.Driver)
	assert.Equal(t, 4, cfg.GPIO.Pin)
	assert.Equal(t, 179, cfg.Timing.QuarterPhaseUsec)
	assert.Equal(t, 1234, cfg.Command.TransmitterID)
	assert.Equal(t, "vibrate", cfg.Command.Mode)
	assert.Equal(t, 7, cfg.Command.Repeat, "环境变量优先于配置文件")
	assert.Equal(t, 45*time.Second, cfg.HTTP.WriteTimeout)
}

func TestLoad_EnvPath(t *testing.T) {
	path := writeYAML(t, map[string]any{"app": map[string]any{"name": "from-env"}})
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.App.Name)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			GPIO:   GPIOConfig{Driver: "stub"},
			Timing: TimingConfig{TargetRate: 4000, Iterations: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "合法配置", mutate: func(c *Config) {}},
		{name: "未知驱动", mutate: func(c *Config) { c.GPIO.Driver = "wiringpi" }, wantErr: true},
		{name: "负的相位时长", mutate: func(c *Config) { c.Timing.QuarterPhaseUsec = -1 }, wantErr: true},
		{name: "目标速率为0", mutate: func(c *Config) { c.Timing.TargetRate = 0 }, wantErr: true},
		{name: "迭代次数为0", mutate: func(c *Config) { c.Timing.Iterations = 0 }, wantErr: true},
		{name: "上下限颠倒", mutate: func(c *Config) { c.Timing.MinUnitUsec = 500; c.Timing.MaxUnitUsec = 100 }, wantErr: true},
		{name: "负的重复上限", mutate: func(c *Config) { c.API.MaxRepeat = -1 }, wantErr: true},
		{name: "启用认证但无密钥", mutate: func(c *Config) { c.API.Auth.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// testChdir 切换工作目录并在测试结束时恢复（等价于 Go 1.24 的 t.Chdir）
func testChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
