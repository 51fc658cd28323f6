package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sightline-ai/sightline/pkg/sightline"
)

// Encode converts normalized float samples to 16-bit little-endian PCM.
// Samples are clamped to [-1, 1]. Negative values scale by 32768 and
// non-negative values by 32767 because the int16 range is not symmetric
// around zero.
func Encode(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		var q int16
		if v < 0 {
			q = int16(math.Round(v * 32768))
		} else {
			q = int16(math.Round(v * 32767))
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(q))
	}
	return out
}

// Decode converts 16-bit little-endian PCM to normalized float samples,
// the inverse of Encode. An odd-length buffer fails with a malformed-audio
// error rather than silently truncating.
func Decode(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, sightline.NewMalformedAudioError(
			fmt.Sprintf("PCM buffer length %d is not a multiple of 2", len(data)))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		q := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if q < 0 {
			out[i] = float32(float64(q) / 32768)
		} else {
			out[i] = float32(float64(q) / 32767)
		}
	}
	return out, nil
}

// EncodeBase64 encodes raw bytes for text-safe transports.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, sightline.NewMalformedAudioError("invalid base64 audio payload")
	}
	return data, nil
}
