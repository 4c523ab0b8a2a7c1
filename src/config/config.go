package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jinjor/midiscope/src/audio"
	"github.com/jinjor/midiscope/src/synth"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Config is the whole configuration file.
type Config struct {
	Audio      Audio      `yaml:"audio"`
	MIDI       MIDI       `yaml:"midi"`
	Instrument Instrument `yaml:"instrument"`
	Scope      Scope      `yaml:"scope"`
	IPC        IPC        `yaml:"ipc"`
}

// Audio ...
type Audio struct {
	Backend       string  `yaml:"backend"`
	SampleRate    int     `yaml:"sampleRate"`
	BufferSamples int     `yaml:"bufferSamples"`
	MaxVoices     int     `yaml:"maxVoices"`
	MasterGain    float64 `yaml:"masterGain"`
	Wavetables    string  `yaml:"wavetables"` // directory written by gentables
	Record        string  `yaml:"record"`     // WAV path
}

// MIDI ...
type MIDI struct {
	Input   string `yaml:"input"`   // port name prefix, empty = first port
	Channel int    `yaml:"channel"` // 1..16, 0 = omni
}

// Instrument ...
type Instrument struct {
	Waveform    string      `yaml:"waveform"`
	Controllers Controllers `yaml:"controllers"`
}

// Controllers ...
type Controllers struct {
	Gain      int `yaml:"gain"`
	Frequency int `yaml:"frequency"`
	Waveform  int `yaml:"waveform"`
}

// Scope ...
type Scope struct {
	FPS    int    `yaml:"fps"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	PNG    string `yaml:"png"`    // last frame is written here when set
	Window string `yaml:"window"` // hann, hamming or blackman
}

// IPC ...
type IPC struct {
	Socket string `yaml:"socket"`
}

// Default ...
func Default() *Config {
	return &Config{
		Audio: Audio{
			Backend:       audio.BackendOto,
			SampleRate:    audio.DefaultSampleRate,
			BufferSamples: audio.DefaultSamplesPerCycle,
			MaxVoices:     audio.DefaultMaxPoly,
			MasterGain:    0.25,
		},
		Instrument: Instrument{
			Waveform: synth.Sine.String(),
			Controllers: Controllers{
				Gain:      synth.DefaultControllers.Gain,
				Frequency: synth.DefaultControllers.Frequency,
				Waveform:  synth.DefaultControllers.Waveform,
			},
		},
		Scope: Scope{
			FPS:    30,
			Width:  640,
			Height: 360,
			Window: "hann",
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file gives
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: %s not found, using default config\n", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate ...
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case audio.BackendOto, audio.BackendPortAudio, audio.BackendNone:
	default:
		return fmt.Errorf("%w: unknown audio backend %q", ErrInvalid, c.Audio.Backend)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: sampleRate should be positive, got %d", ErrInvalid, c.Audio.SampleRate)
	}
	if c.Audio.BufferSamples <= 0 {
		return fmt.Errorf("%w: bufferSamples should be positive, got %d", ErrInvalid, c.Audio.BufferSamples)
	}
	if c.Audio.MaxVoices <= 0 {
		return fmt.Errorf("%w: maxVoices should be positive, got %d", ErrInvalid, c.Audio.MaxVoices)
	}
	if c.Audio.MasterGain <= 0 || c.Audio.MasterGain > 1 {
		return fmt.Errorf("%w: masterGain should be in (0, 1], got %v", ErrInvalid, c.Audio.MasterGain)
	}
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 16 {
		return fmt.Errorf("%w: channel should be 0..16, got %d", ErrInvalid, c.MIDI.Channel)
	}
	if _, err := synth.ParseWaveform(c.Instrument.Waveform); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Controllers().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Scope.FPS <= 0 || c.Scope.FPS > 120 {
		return fmt.Errorf("%w: fps should be 1..120, got %d", ErrInvalid, c.Scope.FPS)
	}
	if _, err := audio.WindowByName(c.Scope.Window); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Scope.Width < 32 || c.Scope.Height < 32 {
		return fmt.Errorf("%w: scope should be at least 32x32, got %dx%d", ErrInvalid, c.Scope.Width, c.Scope.Height)
	}
	return nil
}

// Controllers ...
func (c *Config) Controllers() synth.Controllers {
	return synth.Controllers{
		Gain:      c.Instrument.Controllers.Gain,
		Frequency: c.Instrument.Controllers.Frequency,
		Waveform:  c.Instrument.Controllers.Waveform,
	}
}

// SynthOptions ...
func (c *Config) SynthOptions(debug bool) synth.Options {
	opts := synth.DefaultOptions()
	opts.Waveform, _ = synth.ParseWaveform(c.Instrument.Waveform)
	opts.Controllers = c.Controllers()
	opts.Channel = c.MIDI.Channel
	opts.Debug = debug
	return opts
}

// AudioOptions ...
func (c *Config) AudioOptions(wt *audio.Wavetables) audio.Options {
	return audio.Options{
		SampleRate:      c.Audio.SampleRate,
		SamplesPerCycle: c.Audio.BufferSamples,
		MaxPoly:         c.Audio.MaxVoices,
		MasterGain:      c.Audio.MasterGain,
		Wavetables:      wt,
	}
}
