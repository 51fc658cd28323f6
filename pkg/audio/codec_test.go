package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/sightline-ai/sightline/pkg/sightline"
)

func TestEncodeScaling(t *testing.T) {
	tests := []struct {
		name   string
		sample float32
		want   int16
	}{
		{"full negative", -1.0, -32768},
		{"full positive", 1.0, 32767},
		{"zero", 0.0, 0},
		{"half positive", 0.5, 16384}, // round(0.5 * 32767)
		{"half negative", -0.5, -16384},
		{"clamped above", 2.0, 32767},
		{"clamped below", -3.5, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Encode([]float32{tt.sample})
			if len(out) != 2 {
				t.Fatalf("expected 2 bytes, got %d", len(out))
			}
			got := int16(binary.LittleEndian.Uint16(out))
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRoundTripWithinOneQuantizationStep(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	samples := make([]float32, 4096)
	for i := range samples {
		samples[i] = rng.Float32()*2 - 1
	}

	decoded, err := Decode(Encode(samples))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(decoded))
	}

	const step = 1.0 / 32768.0
	for i := range samples {
		diff := math.Abs(float64(samples[i]) - float64(decoded[i]))
		if diff > step {
			t.Fatalf("sample %d: %f -> %f differs by %f (> %f)",
				i, samples[i], decoded[i], diff, step)
		}
	}
}

func TestDecodeOddLength(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("expected error for odd-length buffer")
	}
	if !sightline.IsType(err, sightline.ErrMalformedAudio) {
		t.Errorf("expected malformed_audio_data, got %v", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	out, err := Decode(nil)
	if err != nil {
		t.Fatalf("decode of empty buffer failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected 0 samples, got %d", len(out))
	}
}

func TestBase64RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{0, 1, 2, 255, 1024} {
		data := make([]byte, n)
		rng.Read(data)

		back, err := DecodeBase64(EncodeBase64(data))
		if err != nil {
			t.Fatalf("len %d: decode failed: %v", n, err)
		}
		if !bytes.Equal(data, back) {
			t.Fatalf("len %d: round trip mismatch", n)
		}
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	_, err := DecodeBase64("not//valid==base64!!")
	if err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if !sightline.IsType(err, sightline.ErrMalformedAudio) {
		t.Errorf("expected malformed_audio_data, got %v", err)
	}
}
