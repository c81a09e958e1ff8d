package media

import "math"

// ResampleStretch stretches stereo samples to the size, the ratio of
// the sizes is the ratio of the sample rates (48000/44100 for example).
// Gaps are filled with the previous sample.
func ResampleStretch(pcm Samples, size int) Samples {
	r, l, out := make(Samples, size/2), make(Samples, size/2), make(Samples, size)
	ratio := float32(size) / float32(len(pcm))
	for i, n := 0, len(pcm)-1; i < n; i += 2 {
		idx := int(float32(i/2) * ratio)
		if idx >= len(r) {
			break
		}
		r[idx], l[idx] = pcm[i], pcm[i+1]
	}
	for i := 1; i < len(r); i++ {
		if r[i] == 0 {
			r[i] = r[i-1]
		}
		if l[i] == 0 {
			l[i] = l[i-1]
		}
	}
	for i := 0; i < size-1; i += 2 {
		out[i], out[i+1] = r[i/2], l[i/2]
	}
	return out
}

// Tone is a stereo sine wave generator.
type Tone struct {
	step  float64
	phase float64
}

func NewTone(hz, rate int) *Tone { return &Tone{step: 2 * math.Pi * float64(hz) / float64(rate)} }

// Read returns the next n interleaved samples.
func (t *Tone) Read(n int) Samples {
	s := make(Samples, n)
	for i := 0; i+1 < n; i += 2 {
		v := int16(math.Sin(t.phase) * 0.3 * math.MaxInt16)
		s[i], s[i+1] = v, v
		t.phase += t.step
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return s
}
