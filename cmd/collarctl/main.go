// collarctl 向项圈接收器发送一条命令（蜂鸣/振动/电击）
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/collar-tx/internal/app"
	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
	"github.com/taoyao-code/collar-tx/internal/gpio"
	"github.com/taoyao-code/collar-tx/internal/logging"
	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
	"github.com/taoyao-code/collar-tx/internal/transmitter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "collarctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := cfgpkg.Load(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if opts.printConfig {
		return yaml.NewEncoder(stdout).Encode(cfg)
	}

	p, err := command(cfg.Command)
	if err != nil {
		return err
	}

	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	line, err := app.OpenLine(cfg.GPIO, logger)
	if err != nil {
		return err
	}
	defer func() {
		// 输出线恢复为输入
		if err := line.Close(); err != nil {
			logger.Warn("close output line", zap.Error(err))
		}
	}()

	var sleeper transmitter.Sleeper = gpio.NewPreciseSleeper()
	override := uint32(cfg.Timing.QuarterPhaseUsec)
	if opts.dryRun {
		sleeper = gpio.NoopSleeper{}
		if override == 0 {
			// 模拟线路无真实耗时，不做校准
			override = uint32(1_000_000 / cfg.Timing.TargetRate)
		}
	}

	runner, _ := app.NewTransmission(cfg.Timing, line, sleeper, nil, logger, func(_ int, usec uint32) {
		fmt.Fprintln(stdout, usec)
	})

	if override == 0 {
		fmt.Fprintln(stdout, "Calibrating")
	}
	res, err := runner.Run(ctx, p, override)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "sent %d/%d frame(s) to %d %s %s strength=%d, quarter phase %dus (%s)\n",
		res.FramesSent, p.Repeat, p.TransmitterID, p.Channel, p.Mode, p.Strength,
		res.TimingUnitUsec, res.TimingSource)
	if res.Cancelled {
		fmt.Fprintln(stdout, "interrupted")
	}

	if opts.dryRun {
		w := collar.Encode(p)
		fmt.Fprintln(stdout, w.String())
		if stub, ok := line.(*gpio.StubSink); ok {
			st := stub.Stats()
			fmt.Fprintf(stdout, "levels=%d transitions=%d\n", st.Levels, st.Transitions)
		}
	}
	fmt.Fprintln(stdout, "Exiting...")
	return nil
}
