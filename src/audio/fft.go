package audio

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FFT is a radix-2 transform for a fixed power-of-two length.
type FFT struct {
	bitReverseTable []int
	wTable          []complex128
	inverse         bool
	work            []complex128
}

// NewFFT ...
func NewFFT(length int, inverse bool) *FFT {
	if length <= 0 || length&(length-1) != 0 {
		panic(fmt.Sprintf("fft length should be a power of 2, got %d", length))
	}
	return &FFT{
		bitReverseTable: makeBitReverseTable(length),
		wTable:          makeWTable(length),
		inverse:         inverse,
		work:            make([]complex128, length),
	}
}

func makeBitReverseTable(n int) []int {
	array := make([]int, n)
	for i := 0; i < n; i++ {
		array[i] = bitReverse(i, n)
	}
	return array
}

func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n = n >> 1 {
		m = m<<1 + k&1
		k = k >> 1
	}
	return m
}

func makeWTable(n int) []complex128 {
	array := make([]complex128, n)
	w := -2.0 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		array[i] = cmplx.Exp(complex(0, w*float64(i)))
	}
	return array
}

// Calc transforms x in place.
func (fft *FFT) Calc(x []complex128) {
	n := len(x)
	if n != len(fft.bitReverseTable) {
		panic(fmt.Sprintf("length should be %v", len(fft.bitReverseTable)))
	}
	for i := 0; i < n; i++ {
		rev := fft.bitReverseTable[i]
		if i < rev {
			x[i], x[rev] = x[rev], x[i]
		}
	}
	for m := 1; m < n; m = m << 1 {
		step := m << 1
		for k := 0; k < m; k++ {
			idx := n / step * k
			if fft.inverse && idx != 0 {
				idx = n - idx
			}
			w := fft.wTable[idx]
			for i := k; i < n; i += step {
				j := i + m
				tmp := x[j] * w
				x[j] = x[i] - tmp
				x[i] = x[i] + tmp
			}
		}
	}
	if fft.inverse {
		for i := 0; i < n; i++ {
			x[i] /= complex(float64(n), 0)
		}
	}
}

// CalcReal ...
func (fft *FFT) CalcReal(x []float64) {
	cx := fft.load(x)
	fft.Calc(cx)
	for i := range x {
		x[i] = real(cx[i])
	}
}

// CalcAbs replaces x with the magnitude of its transform.
func (fft *FFT) CalcAbs(x []float64) {
	cx := fft.load(x)
	fft.Calc(cx)
	for i := range x {
		x[i] = cmplx.Abs(cx[i])
	}
}

func (fft *FFT) load(x []float64) []complex128 {
	if len(x) != len(fft.work) {
		panic(fmt.Sprintf("length should be %v", len(fft.work)))
	}
	for i, v := range x {
		fft.work[i] = complex(v, 0)
	}
	return fft.work
}
