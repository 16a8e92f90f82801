package collar

import (
	"errors"
	"fmt"
	"strings"
)

// Channel 项圈通道（协议字段宽度4位，0~2有效，3为保留值）
type Channel uint8

const (
	Channel1 Channel = 0
	Channel2 Channel = 1
	Channel3 Channel = 2
)

// Number 返回面向用户的通道编号（1~3）
func (c Channel) Number() int { return int(c) + 1 }

func (c Channel) String() string { return fmt.Sprintf("channel%d", c.Number()) }

// Mode 动作命令（协议字段宽度4位）
// 0 不属于该枚举，仅在校准帧内部使用
type Mode uint8

const (
	ModeShock   Mode = 1
	ModeVibrate Mode = 2
	ModeBeep    Mode = 3
)

// Valid 是否为协议定义的动作
func (m Mode) Valid() bool {
	return m == ModeShock || m == ModeVibrate || m == ModeBeep
}

func (m Mode) String() string {
	switch m {
	case ModeShock:
		return "shock"
	case ModeVibrate:
		return "vibrate"
	case ModeBeep:
		return "beep"
	default:
		return "unknown"
	}
}

// ParseMode 解析动作名称
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shock", "s":
		return ModeShock, nil
	case "vibrate", "v":
		return ModeVibrate, nil
	case "beep", "b", "":
		return ModeBeep, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// 命令参数取值范围（用户输入层面）
const (
	DefaultTransmitterID = 46231
	MaxStrength          = 99
	MinChannelNumber     = 1
	MaxChannelNumber     = 3
)

var (
	ErrInvalidMode          = errors.New("invalid mode")
	ErrInvalidChannel       = errors.New("invalid channel (valid range: 1-3)")
	ErrInvalidStrength      = errors.New("invalid strength (valid range: 0-99)")
	ErrInvalidRepeat        = errors.New("invalid repeat (must be >= 1)")
	ErrInvalidTransmitterID = errors.New("invalid transmitter id (valid range: 0-65535)")
)

// CommandParams 一次发送请求（构造后只读）
// 编码器不做范围检查：超出字段宽度的值按位截断
type CommandParams struct {
	TransmitterID uint16
	Channel       Channel
	Mode          Mode
	Strength      uint // 编码为8位，0~99为协议取值
	Repeat        uint // 整帧连续重发次数
}

// DefaultCommand 默认命令：通道1蜂鸣，发送1次
func DefaultCommand() CommandParams {
	return CommandParams{
		TransmitterID: DefaultTransmitterID,
		Channel:       Channel1,
		Mode:          ModeBeep,
		Strength:      0,
		Repeat:        1,
	}
}

// NewCommand 根据用户输入构造命令并校验范围
// channel 为1起始的通道编号；beep 模式强度强制为0
func NewCommand(transmitterID, channel int, mode Mode, strength, repeat int) (CommandParams, error) {
	if transmitterID < 0 || transmitterID > 0xFFFF {
		return CommandParams{}, fmt.Errorf("%w: %d", ErrInvalidTransmitterID, transmitterID)
	}
	if channel < MinChannelNumber || channel > MaxChannelNumber {
		return CommandParams{}, fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	if !mode.Valid() {
		return CommandParams{}, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}
	if strength < 0 || strength > MaxStrength {
		return CommandParams{}, fmt.Errorf("%w: %d", ErrInvalidStrength, strength)
	}
	if repeat < 1 {
		return CommandParams{}, fmt.Errorf("%w: %d", ErrInvalidRepeat, repeat)
	}
	if mode == ModeBeep {
		strength = 0
	}
	return CommandParams{
		TransmitterID: uint16(transmitterID),
		Channel:       Channel(channel - 1),
		Mode:          mode,
		Strength:      uint(strength),
		Repeat:        uint(repeat),
	}, nil
}

// fields 截断到协议字段宽度后的原始值
type fields struct {
	transmitterID uint16
	channelMode   uint8 // channel<<4 | mode
	strength      uint8
}

func (p CommandParams) fields() fields {
	return fields{
		transmitterID: p.TransmitterID,
		channelMode:   uint8(p.Channel&0x0F)<<4 | uint8(p.Mode&0x0F),
		strength:      uint8(p.Strength & 0xFF),
	}
}
