package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jinjor/midiscope/src/audio"
	"github.com/jinjor/midiscope/src/command"
	"github.com/jinjor/midiscope/src/config"
	"github.com/jinjor/midiscope/src/console"
	"github.com/jinjor/midiscope/src/midi"
	"github.com/jinjor/midiscope/src/midi/rtmidi"
	"github.com/jinjor/midiscope/src/output"
	"github.com/jinjor/midiscope/src/scope"
	"github.com/jinjor/midiscope/src/synth"
	"golang.org/x/sync/errgroup"
)

// samples per "scope" report line
const reportPoints = 512

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	useConsole := flag.Bool("console", false, "read commands from the terminal")
	debug := flag.Bool("debug", false, "log every MIDI message")
	socket := flag.String("socket", "", "unix socket for the UI (overrides ipc.socket)")
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	if *socket != "" {
		cfg.IPC.Socket = *socket
	}

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var wavetables *audio.Wavetables
	if cfg.Audio.Wavetables != "" {
		wavetables, err = audio.LoadWavetables(cfg.Audio.Wavetables)
		if err != nil {
			log.Printf("WARN: %v (using naive waveforms)\n", err)
		}
	}
	engine := audio.NewEngine(cfg.AudioOptions(wavetables))
	defer engine.Close()

	window, err := audio.WindowByName(cfg.Scope.Window)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	analyser, err := audio.NewAnalyser(audio.DefaultAnalyserSize, window)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	engine.AddTap(analyser)

	var recorder *audio.Recorder
	if cfg.Audio.Record != "" {
		recorder, err = audio.NewRecorder(cfg.Audio.Record, engine.SampleRate())
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		engine.AddTap(recorder)
	}

	sink := output.OpenOrDisable(cfg.Audio.Backend, engine)
	if sink != nil {
		defer func() {
			if err := sink.Close(); err != nil {
				log.Printf("error while closing audio output: %v", err)
			}
		}()
	}

	inst := synth.NewInstrument(engine, cfg.SynthOptions(*debug))
	handle := inst.HandleMessage
	if *debug {
		handle = func(data []byte) {
			log.Printf("MIDI IN: %s\n", midi.Describe(data))
			inst.HandleMessage(data)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return inst.Run(gctx)
	})
	if sink != nil {
		g.Go(func() error {
			return sink.Play(gctx)
		})
	}
	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}
	g.Go(func() error {
		return midi.ListenToMidiIn(gctx, rtmidi.OpenDriver, cfg.MIDI.Input, handle)
	})
	if cfg.Scope.PNG != "" {
		sc := scope.New(analyser, cfg.Scope.Width, cfg.Scope.Height, cfg.Scope.FPS)
		sc.AddSink(&scope.PNGWriter{Path: cfg.Scope.PNG})
		g.Go(func() error {
			return sc.Run(gctx)
		})
	}
	switch {
	case cfg.IPC.Socket != "":
		g.Go(func() error {
			defer cancel()
			return withIPCConnection(gctx, cfg.IPC.Socket, func(conn net.Conn) error {
				g, ctx := errgroup.WithContext(gctx)
				stop := context.AfterFunc(ctx, func() {
					conn.Close()
				})
				defer stop()
				g.Go(func() error {
					return receiveCommands(ctx, conn, inst)
				})
				g.Go(func() error {
					return sendReports(ctx, conn, analyser, inst, cfg.Scope.FPS)
				})
				if err := g.Wait(); !errors.Is(err, errQuitConnection) {
					return err
				}
				return nil
			})
		})
	case *useConsole || console.IsInteractive():
		g.Go(func() error {
			defer cancel()
			return console.Run(gctx, inst)
		})
	default:
		log.Println("no UI: playing MIDI input until interrupted")
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func withIPCConnection(ctx context.Context, sockFileName string, f func(net.Conn) error) error {
	os.Remove(sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFileName)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		err := listener.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(sockFileName)
	}()
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()
	log.Printf("start listening on %s...\n", sockFileName)
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		err := conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	return f(conn)
}

func receiveCommands(ctx context.Context, conn net.Conn, target command.Target) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF || errors.Is(err, net.ErrClosed) {
			break loop
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		log.Printf("received: %s\n", string(line))
		result, err := command.Eval(target, string(line))
		line = []byte{}
		if errors.Is(err, command.ErrQuit) {
			break loop
		}
		if err != nil {
			log.Printf("WARN: %v\n", err)
			continue
		}
		if result != "" {
			log.Println(result)
		}
	}
	log.Println("receiveCommands() ended.")
	return errQuitConnection
}

// errQuitConnection ends the sibling report loop when the UI goes away.
var errQuitConnection = errors.New("connection closed")

type reportSource interface {
	scope.Source
	Spectrum() []float64
}

func sendReports(ctx context.Context, conn net.Conn, source reportSource, inst *synth.Instrument, fps int) error {
	t := time.NewTicker(time.Second / time.Duration(fps))
	defer t.Stop()
	var samples []float64
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			samples = source.TimeDomain(samples)
			s := scope.ReportLine(samples, reportPoints) + "\n" +
				scope.SpectrumLine(source.Spectrum(), reportPoints) + "\n" +
				scope.NotesLine(inst.ActiveNotes()) + "\n"
			if _, err := conn.Write([]byte(s)); err != nil {
				if ctx.Err() != nil {
					break loop
				}
				return err
			}
		}
	}
	log.Println("sendReports() ended.")
	return nil
}
