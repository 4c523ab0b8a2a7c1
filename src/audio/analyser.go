package audio

import (
	"fmt"
	"sync"
)

// DefaultAnalyserSize ...
const DefaultAnalyserSize = 2048

// Analyser keeps the most recent output for the scope. It is an engine Tap.
type Analyser struct {
	sync.Mutex
	out       []float64 // ring, length: size
	pos       int64
	fft       *FFT
	window    Window
	fftResult []float64
}

var _ Tap = (*Analyser)(nil)

// NewAnalyser ...
func NewAnalyser(size int, window Window) (*Analyser, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("analyser size should be a power of 2, got %d", size)
	}
	if window == nil {
		window = Han
	}
	return &Analyser{
		out:       make([]float64, size),
		fft:       NewFFT(size, false),
		window:    window,
		fftResult: make([]float64, size),
	}, nil
}

// Size ...
func (a *Analyser) Size() int {
	return len(a.out)
}

// Write ...
func (a *Analyser) Write(samples []float64) {
	a.Lock()
	defer a.Unlock()
	size := int64(len(a.out))
	for _, v := range samples {
		a.out[a.pos%size] = v
		a.pos++
	}
}

// TimeDomain copies the last Size() samples, oldest first, into dst and
// returns it. dst is grown when too short.
func (a *Analyser) TimeDomain(dst []float64) []float64 {
	if cap(dst) < len(a.out) {
		dst = make([]float64, len(a.out))
	}
	dst = dst[:len(a.out)]
	a.Lock()
	// out:    | 4 | 1 | 2 | 3 |
	// offset:     ^
	// dst:    | 1 | 2 | 3 | 4 |
	offset := int(a.pos % int64(len(a.out)))
	n := copy(dst, a.out[offset:])
	copy(dst[n:], a.out[:offset])
	a.Unlock()
	return dst
}

// Spectrum returns the magnitude spectrum up to Nyquist. The returned slice
// is reused by the next call.
func (a *Analyser) Spectrum() []float64 {
	size := len(a.out)
	a.fftResult = a.TimeDomain(a.fftResult)
	a.window(a.fftResult)
	a.fft.CalcAbs(a.fftResult)
	for i, value := range a.fftResult {
		a.fftResult[i] = value * 2 / float64(size)
	}
	return a.fftResult[:size/2]
}
