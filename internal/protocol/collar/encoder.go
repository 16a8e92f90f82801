package collar

import (
	"encoding/hex"
	"strings"
)

// 帧格式（每个逻辑位展开为4个四分相位，高位在前）：
// 前导(8相位) + 发射器ID(16) + 通道(4) + 动作(4) + 强度(8) + 校验和(8) + 结束位(2个0)
//
// 逻辑1 = 高高高低 (0xE)，逻辑0 = 高低低低 (0x8)，前导 = 高×6 低×2 (0xFC)
const (
	High = true
	Low  = false

	QuarterPhasesPerBit   = 4
	PreambleQuarterPhases = 8

	TransmitterIDBits = 16
	ChannelBits       = 4
	ModeBits          = 4
	StrengthBits      = 8
	ChecksumBits      = 8
	PostfixBits       = 2

	// FrameBits 前导按2位计入时的帧长度（位）
	FrameBits = PreambleQuarterPhases/QuarterPhasesPerBit +
		TransmitterIDBits + ChannelBits + ModeBits + StrengthBits + ChecksumBits + PostfixBits

	// FrameQuarterPhases 一帧的四分相位总数
	FrameQuarterPhases = FrameBits * QuarterPhasesPerBit
)

var (
	preamble = [PreambleQuarterPhases]bool{High, High, High, High, High, High, Low, Low}
	bitOne   = [QuarterPhasesPerBit]bool{High, High, High, Low}
	bitZero  = [QuarterPhasesPerBit]bool{High, Low, Low, Low}
)

// Waveform 一帧完整的四分相位电平序列
type Waveform [FrameQuarterPhases]bool

// Levels 以切片形式返回电平序列（不复制）
func (w *Waveform) Levels() []bool { return w[:] }

// Encode 将命令编码为电平序列（纯函数，无分配）
func Encode(p CommandParams) Waveform {
	var w Waveform
	EncodeInto(&w, p)
	return w
}

// EncodeInto 将命令编码写入调用方提供的 Waveform
func EncodeInto(w *Waveform, p CommandParams) {
	w.encode(p.fields())
}

// EncodeCalibration 编码校准用的空帧（所有字段为0，动作为0）
// 该帧只用于测量发送耗时，不属于任何有效命令
func EncodeCalibration(w *Waveform) {
	w.encode(fields{})
}

func (w *Waveform) encode(f fields) {
	n := copy(w[:], preamble[:])
	n = w.putBits(n, uint32(f.transmitterID), TransmitterIDBits)
	n = w.putBits(n, uint32(f.channelMode>>4), ChannelBits)
	n = w.putBits(n, uint32(f.channelMode&0x0F), ModeBits)
	n = w.putBits(n, uint32(f.strength), StrengthBits)
	n = w.putBits(n, uint32(f.checksum()), ChecksumBits)
	w.putBits(n, 0, PostfixBits)
}

// putBits 高位在前展开 value 的低 bits 位，返回下一个写入位置
func (w *Waveform) putBits(pos int, value uint32, bits int) int {
	for bit := bits - 1; bit >= 0; bit-- {
		if value>>uint(bit)&1 == 1 {
			pos += copy(w[pos:], bitOne[:])
		} else {
			pos += copy(w[pos:], bitZero[:])
		}
	}
	return pos
}

// Bytes 每4个相位打包为一个半字节（高电平为1）
func (w Waveform) Bytes() []byte {
	out := make([]byte, FrameQuarterPhases/8)
	for i, level := range w {
		if level {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

// Hex 半字节形式的十六进制表示，例如 "fce8ee...88"
func (w Waveform) Hex() string {
	return hex.EncodeToString(w.Bytes())
}

// String 按字段分组的十六进制表示：前导 ID 通道 动作 强度 校验和 结束
func (w Waveform) String() string {
	h := w.Hex()
	widths := []int{
		PreambleQuarterPhases / QuarterPhasesPerBit,
		TransmitterIDBits, ChannelBits, ModeBits, StrengthBits, ChecksumBits, PostfixBits,
	}
	parts := make([]string, 0, len(widths))
	pos := 0
	for _, n := range widths {
		parts = append(parts, h[pos:pos+n])
		pos += n
	}
	return strings.Join(parts, " ")
}
