package collar

// Checksum 计算命令校验和
// 算法：发射器ID高字节 + 低字节 + (channel<<4|mode) + strength，按字节累加（溢出丢弃高位）
// 在位展开之前基于原始字段值计算
func Checksum(p CommandParams) uint8 {
	return p.fields().checksum()
}

func (f fields) checksum() uint8 {
	var sum uint8
	sum += uint8(f.transmitterID >> 8)
	sum += uint8(f.transmitterID)
	sum += f.channelMode
	sum += f.strength
	return sum
}
