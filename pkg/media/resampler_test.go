package media

import (
	"math/rand"
	"testing"
)

func gen(l int) Samples {
	s := make(Samples, l)
	for i := range s {
		s[i] = int16(rand.Intn(1<<15-1)) + 1
	}
	return s
}

func TestResampleStretch(t *testing.T) {
	tests := []struct {
		name string
		in   int
		size int
	}{
		{name: "44.1 to 48", in: 1764, size: 1920},
		{name: "same", in: 1920, size: 1920},
		{name: "48 to 44.1", in: 1920, size: 1764},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := gen(tt.in)
			out := ResampleStretch(pcm, tt.size)
			if len(out) != tt.size {
				t.Fatalf("size %v, want %v", len(out), tt.size)
			}
			if tt.size >= tt.in && (out[0] != pcm[0] || out[1] != pcm[1]) {
				t.Errorf("first frame %v %v", out[0], out[1])
			}
			for i, v := range out {
				if v == 0 {
					t.Fatalf("gap at %v", i)
				}
			}
			again := ResampleStretch(pcm, tt.size)
			for i := range out {
				if out[i] != again[i] {
					t.Fatalf("not stable at %v", i)
				}
			}
		})
	}
}

func BenchmarkResampleStretch(b *testing.B) {
	pcm := gen(1764)
	for i := 0; i < b.N; i++ {
		ResampleStretch(pcm, 1920)
	}
}

func TestTone(t *testing.T) {
	tone := NewTone(440, 44100)
	a, b := tone.Read(1764), tone.Read(1764)
	if len(a) != 1764 {
		t.Fatalf("len %v", len(a))
	}
	peak := int16(0)
	for i := 0; i < len(a); i += 2 {
		if a[i] != a[i+1] {
			t.Fatalf("channels differ at %v", i)
		}
		if a[i] > peak {
			peak = a[i]
		}
	}
	if peak < 9000 || peak > 10000 {
		t.Errorf("peak %v", peak)
	}
	if a[0] == b[0] && a[2] == b[2] {
		t.Errorf("the phase is not kept between reads")
	}
}
