package audio

import "encoding/binary"

// AverageVolume returns the mean absolute amplitude of the signed 16-bit
// little-endian samples in window. A trailing odd byte is ignored and an
// empty window yields 0.
func AverageVolume(window []byte) float64 {
	count := len(window) / BytesPerSample
	if count == 0 {
		return 0
	}

	var total float64
	for i := 0; i < count; i++ {
		sample := int16(binary.LittleEndian.Uint16(window[i*2:]))
		if sample < 0 {
			total -= float64(sample)
		} else {
			total += float64(sample)
		}
	}

	return total / float64(count)
}
