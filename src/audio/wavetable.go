package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

const (
	// NumWavetables is one table per MIDI note.
	NumWavetables = 128
	// WavetableSamples ...
	WavetableSamples = 4096

	squareFile = "square.wt"
	sawFile    = "saw.wt"
)

type wavetable struct {
	values []float64
}

func newWavetable(cap int) *wavetable {
	return &wavetable{
		values: make([]float64, 0, cap),
	}
}

func (wt *wavetable) generate(samples int, phaseToValue func(phase float64) float64) error {
	if samples > cap(wt.values) {
		return fmt.Errorf("capacity exceeded")
	}
	wt.values = wt.values[0:samples]
	for i := 0; i < samples; i++ {
		phase := 2.0 * math.Pi / float64(samples) * float64(i)
		wt.values[i] = phaseToValue(phase)
	}
	return nil
}

func (wt *wavetable) getAtPhase(phase float64) float64 {
	length := len(wt.values)
	if length == 0 {
		return 0
	}
	phase = positiveMod(phase, 2.0*math.Pi)
	phasePerSample := 2.0 * math.Pi / float64(length)
	index := int(phase / phasePerSample)
	if index >= length {
		index = length - 1
	}
	nextIndex := index + 1
	if nextIndex >= length {
		nextIndex = 0
	}
	frac := math.Mod(phase, phasePerSample) / phasePerSample
	return wt.values[index]*(1-frac) + wt.values[nextIndex]*frac
}

func (wt *wavetable) makeBandLimitedTableForGivenNumberOfPartials(samples int, partials int, calcFourierPartialAtPhase func(n int, phase float64) float64) error {
	return wt.generate(samples, func(phase float64) float64 {
		value := 0.0
		for i := 1; i <= partials; i++ {
			value += calcFourierPartialAtPhase(i, phase)
		}
		return value
	})
}

// partials above Nyquist are dropped
func (wt *wavetable) makeBandLimitedTableWithMaxNumbersOfPartialsAtNote(samples int, sampleRate int, note int, calcFourierPartialAtPhase func(n int, phase float64) float64) error {
	freq := synthNoteToFreq(note)
	partials := int(float64(sampleRate) / 2 / freq)
	if partials < 1 {
		partials = 1
	}
	return wt.makeBandLimitedTableForGivenNumberOfPartials(samples, partials, calcFourierPartialAtPhase)
}

func synthNoteToFreq(note int) float64 {
	return 440.0 * math.Pow(2, float64(note-69)/12)
}

// WavetableSet holds one band-limited table per note.
type WavetableSet struct {
	tables []*wavetable
}

// NewWavetableSet ...
func NewWavetableSet(tableCap int, sampleCap int) *WavetableSet {
	tables := make([]*wavetable, tableCap)
	for i := 0; i < tableCap; i++ {
		tables[i] = newWavetable(sampleCap)
	}
	return &WavetableSet{
		tables: tables,
	}
}

// MakeBandLimitedTablesForAllNotes ...
func (wts *WavetableSet) MakeBandLimitedTablesForAllNotes(samples int, sampleRate int, calcFourierPartialAtPhase func(n int, phase float64) float64) error {
	if cap(wts.tables) < NumWavetables {
		return fmt.Errorf("capacity of tables exceeded")
	}
	wts.tables = wts.tables[0:NumWavetables]
	for i := 0; i < NumWavetables; i++ {
		err := wts.tables[i].makeBandLimitedTableWithMaxNumbersOfPartialsAtNote(samples, sampleRate, i, calcFourierPartialAtPhase)
		if err != nil {
			return fmt.Errorf("table %d: %w", i, err)
		}
	}
	return nil
}

// SquarePartial is the n-th Fourier term of a unit square wave.
func SquarePartial(n int, phase float64) float64 {
	if n%2 == 1 {
		x := float64(n)
		return 4 / math.Pi * math.Sin(x*phase) / x
	}
	return 0.0
}

// SawPartial is the n-th Fourier term of a rising unit sawtooth.
func SawPartial(n int, phase float64) float64 {
	x := float64(n)
	return -2 / math.Pi * math.Sin(x*phase) / x
}

// IO
//   all = { number_of_tables int32, tables []table }
//   table = { number_of_samples int32, samples []float64 }

// Save ...
func (wts *WavetableSet) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	numTables := int32(len(wts.tables))
	if err := binary.Write(w, binary.BigEndian, numTables); err != nil {
		return err
	}
	for _, wt := range wts.tables {
		numSamples := int32(len(wt.values))
		if err := binary.Write(w, binary.BigEndian, numSamples); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, wt.values); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// Load ...
func (wts *WavetableSet) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	r := bufio.NewReader(file)
	var numTables int32
	if err := binary.Read(r, binary.BigEndian, &numTables); err != nil {
		return err
	}
	if numTables < 0 || int(numTables) > cap(wts.tables) {
		return fmt.Errorf("number of tables exceeded")
	}
	wts.tables = wts.tables[0:numTables]
	for _, wt := range wts.tables {
		var numSamples int32
		if err := binary.Read(r, binary.BigEndian, &numSamples); err != nil {
			return err
		}
		if numSamples < 0 || int(numSamples) > cap(wt.values) {
			return fmt.Errorf("number of samples exceeded")
		}
		wt.values = wt.values[0:numSamples]
		if err := binary.Read(r, binary.BigEndian, wt.values); err != nil {
			return err
		}
	}
	return nil
}

// ----- Wavetables ----- //

// Wavetables are the band-limited shapes used for square and sawtooth.
type Wavetables struct {
	Square *WavetableSet
	Saw    *WavetableSet
}

// LoadWavetables reads square.wt and saw.wt written by gentables from dir.
func LoadWavetables(dir string) (*Wavetables, error) {
	load := func(name string) (*WavetableSet, error) {
		wts := NewWavetableSet(NumWavetables, WavetableSamples)
		path := filepath.Join(dir, name)
		if err := wts.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load wavetable %s: %w", path, err)
		}
		if len(wts.tables) != NumWavetables {
			return nil, fmt.Errorf("wavetable %s has %d tables, want %d", path, len(wts.tables), NumWavetables)
		}
		return wts, nil
	}
	square, err := load(squareFile)
	if err != nil {
		return nil, err
	}
	saw, err := load(sawFile)
	if err != nil {
		return nil, err
	}
	return &Wavetables{Square: square, Saw: saw}, nil
}

// WavetableFiles returns the file names gentables writes into a directory.
func WavetableFiles() (square string, saw string) {
	return squareFile, sawFile
}
