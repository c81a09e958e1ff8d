package media

// Samples are 16-bit PCM samples, stereo interleaved.
type Samples []int16

// Buffer cuts a stream of samples into frames of a fixed size.
// It is not thread safe.
type Buffer struct {
	s  Samples
	wi int
}

func NewBuffer(numSamples int) Buffer { return Buffer{s: make(Samples, numSamples)} }

// Write appends the samples and calls onFull for every complete frame.
// The frame passed to onFull is reused by the next write.
// Returns the number of written samples.
func (b *Buffer) Write(s Samples, onFull func(frame Samples)) (r int) {
	for r < len(s) {
		w := copy(b.s[b.wi:], s[r:])
		r += w
		b.wi += w
		if b.wi == len(b.s) {
			b.wi = 0
			if onFull != nil {
				onFull(b.s)
			}
		}
	}
	return
}

// Mono8 packs the left channel into 8-bit samples.
func (s Samples) Mono8() []byte {
	out := make([]byte, len(s)/2)
	for i := range out {
		out[i] = byte(uint16(s[i*2]) >> 8)
	}
	return out
}
