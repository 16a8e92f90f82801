package app

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
	"github.com/taoyao-code/collar-tx/internal/gpio"
	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
	"github.com/taoyao-code/collar-tx/internal/transmitter"
)

// Line 可关闭的输出线
type Line interface {
	transmitter.OutputSink
	io.Closer
}

// stubKeep 模拟输出线保留的电平数（约100帧）
const stubKeep = 100 * collar.FrameQuarterPhases

// OpenLine 按配置打开输出线（rpio 真实引脚或 stub 模拟）
func OpenLine(cfg cfgpkg.GPIOConfig, logger *zap.Logger) (Line, error) {
	switch strings.ToLower(cfg.Driver) {
	case "stub":
		logger.Info("using stub output line")
		return gpio.NewStubSink(stubKeep), nil
	case "rpio", "":
		line, err := gpio.OpenRPIO(cfg.Pin)
		if err != nil {
			return nil, fmt.Errorf("open output line: %w", err)
		}
		logger.Info("gpio output line ready", zap.Int("pin", cfg.Pin))
		return line, nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", cfg.Driver)
	}
}
