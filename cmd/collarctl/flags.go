package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	cfgpkg "github.com/taoyao-code/collar-tx/internal/config"
	"github.com/taoyao-code/collar-tx/internal/protocol/collar"
)

const usageText = `Usage: collarctl [-d usec] [-i id] [-c channel] [-b] [-v strength] [-s strength] [-r count]
  -d: quarter-phase delay in microseconds. 0 for automatic calibration.
  -i: transmitter id. default 46231.
  -c: channel. 1..3. default 1.
  -b: beep mode. default.
  -v: vibrate mode. strength: 0..99.
  -s: shock mode. strength: 0..99.
  -r: repeat. default 1.
`

// options 命令行参数；未显式给出的字段取配置文件
type options struct {
	configPath  string
	dryRun      bool
	printConfig bool

	delayUsec     int
	transmitterID int
	channel       int
	repeat        int
	// 模式标志按出现顺序生效，后者覆盖前者
	mode     collar.Mode
	strength int
	modeSet  bool

	fs *pflag.FlagSet
}

// modeFlag -b/-v/-s 共用的模式设置
type modeFlag struct {
	opts *options
	mode collar.Mode
	bare bool
}

func (f *modeFlag) String() string { return "" }

func (f *modeFlag) Type() string {
	if f.bare {
		return "bool"
	}
	return "strength"
}

func (f *modeFlag) Set(s string) error {
	strength := 0
	if !f.bare {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid strength %q", s)
		}
		strength = v
	}
	f.opts.mode = f.mode
	f.opts.strength = strength
	f.opts.modeSet = true
	return nil
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{mode: collar.ModeBeep}
	fs := pflag.NewFlagSet("collarctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usageText) }

	fs.IntVarP(&o.delayUsec, "delay", "d", 0, "quarter-phase delay in microseconds, 0 = calibrate")
	fs.IntVarP(&o.transmitterID, "id", "i", collar.DefaultTransmitterID, "transmitter id")
	fs.IntVarP(&o.channel, "channel", "c", 1, "channel 1..3")
	fs.IntVarP(&o.repeat, "repeat", "r", 1, "frame repeat count")

	beep := fs.VarPF(&modeFlag{opts: o, mode: collar.ModeBeep, bare: true}, "beep", "b", "beep mode")
	beep.NoOptDefVal = "true"
	fs.VarP(&modeFlag{opts: o, mode: collar.ModeVibrate}, "vibrate", "v", "vibrate mode with strength 0..99")
	fs.VarP(&modeFlag{opts: o, mode: collar.ModeShock}, "shock", "s", "shock mode with strength 0..99")

	fs.StringVar(&o.configPath, "config", "", "config file (default $COLLAR_CONFIG or ./configs/collar.yaml)")
	fs.BoolVar(&o.dryRun, "dry-run", false, "encode and drive a simulated line, print the waveform")
	fs.BoolVar(&o.printConfig, "print-config", false, "print the effective config as YAML and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	o.fs = fs
	return o, nil
}

// apply 将显式给出的参数覆盖到配置上
func (o *options) apply(cfg *cfgpkg.Config) {
	if o.fs.Changed("delay") {
		cfg.Timing.QuarterPhaseUsec = o.delayUsec
	}
	if o.fs.Changed("id") {
		cfg.Command.TransmitterID = o.transmitterID
	}
	if o.fs.Changed("channel") {
		cfg.Command.Channel = o.channel
	}
	if o.fs.Changed("repeat") {
		cfg.Command.Repeat = o.repeat
	}
	if o.modeSet {
		cfg.Command.Mode = o.mode.String()
		cfg.Command.Strength = o.strength
	}
	if o.dryRun {
		cfg.GPIO.Driver = "stub"
	}
}

// command 校验并构造命令参数；超出范围在发送前拒绝
func command(cfg cfgpkg.CommandConfig) (collar.CommandParams, error) {
	mode, err := collar.ParseMode(cfg.Mode)
	if err != nil {
		return collar.CommandParams{}, err
	}
	return collar.NewCommand(cfg.TransmitterID, cfg.Channel, mode, cfg.Strength, cfg.Repeat)
}
