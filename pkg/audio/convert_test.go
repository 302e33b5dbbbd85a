package audio

import (
	"math"
	"testing"
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func TestPCM16ToFloat32(t *testing.T) {
	t.Parallel()

	got := PCM16ToFloat32(pcm16(0, 16384, -16384, 32767, -32768))
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768, -1}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFloat32ToPCM16Clamps(t *testing.T) {
	t.Parallel()

	got := Float32ToPCM16([]float32{0, 2, -2})
	wantSamples := []int16{0, 32767, -32768}
	for i, want := range wantSamples {
		s := int16(got[i*2]) | int16(got[i*2+1])<<8
		if s != want {
			t.Errorf("sample %d: got %d, want %d", i, s, want)
		}
	}
}

func TestPCM16Float32Roundtrip(t *testing.T) {
	t.Parallel()

	src := pcm16(0, 100, -100, 12345, -12345, 32000)
	got := Float32ToPCM16(PCM16ToFloat32(src))
	if len(got) != len(src) {
		t.Fatalf("got %d bytes, want %d", len(got), len(src))
	}
	for i := 0; i < len(src); i += 2 {
		orig := int16(src[i]) | int16(src[i+1])<<8
		back := int16(got[i]) | int16(got[i+1])<<8
		if diff := int(orig) - int(back); diff < -1 || diff > 1 {
			t.Errorf("sample %d: got %d, want %d (±1)", i/2, back, orig)
		}
	}
}

func TestResampleFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       int
		src, dst int
		wantLen  int
	}{
		{"upsample 16k to 48k", 320, 16000, 48000, 960},
		{"downsample 48k to 16k", 960, 48000, 16000, 320},
		{"same rate passthrough", 320, 16000, 16000, 320},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := make([]float32, tt.in)
			for i := range in {
				in[i] = float32(math.Sin(2 * math.Pi * float64(i) / 64))
			}
			got := ResampleFloat32(in, tt.src, tt.dst)
			if len(got) != tt.wantLen {
				t.Errorf("got %d samples, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestResampleFloat32PreservesConstant(t *testing.T) {
	t.Parallel()

	in := make([]float32, 160)
	for i := range in {
		in[i] = 0.25
	}
	got := ResampleFloat32(in, 16000, 48000)
	for i, v := range got {
		if math.Abs(float64(v)-0.25) > 1e-6 {
			t.Fatalf("sample %d: got %v, want 0.25", i, v)
		}
	}
}

func TestEncodeDecodeWAVRoundtrip(t *testing.T) {
	t.Parallel()

	src := pcm16(0, 1000, -1000, 30000, -30000)
	wav := EncodeWAV(src, 16000, 1)
	if len(wav) != 44+len(src) {
		t.Fatalf("got %d bytes, want %d", len(wav), 44+len(src))
	}

	samples, rate, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("got rate %d, want 16000", rate)
	}
	if len(samples) != 5 {
		t.Fatalf("got %d samples, want 5", len(samples))
	}
	back := Float32ToPCM16(samples)
	for i := 0; i < len(src); i += 2 {
		orig := int16(src[i]) | int16(src[i+1])<<8
		round := int16(back[i]) | int16(back[i+1])<<8
		if diff := int(orig) - int(round); diff < -1 || diff > 1 {
			t.Errorf("sample %d: got %d, want %d (±1)", i/2, round, orig)
		}
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	t.Parallel()

	// Two stereo frames: (1000, 3000) and (-2000, -4000).
	wav := EncodeWAV(pcm16(1000, 3000, -2000, -4000), 22050, 2)
	samples, rate, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 22050 {
		t.Errorf("got rate %d, want 22050", rate)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if want := float32(2000) / 32768; math.Abs(float64(samples[0]-want)) > 1e-6 {
		t.Errorf("frame 0: got %v, want %v", samples[0], want)
	}
	if want := float32(-3000) / 32768; math.Abs(float64(samples[1]-want)) > 1e-6 {
		t.Errorf("frame 1: got %v, want %v", samples[1], want)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("OggS\x00\x00\x00\x00\x00\x00\x00\x00")},
		{"riff without chunks", []byte("RIFF\x04\x00\x00\x00WAVE")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
