package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chzyer/readline"
	"github.com/jinjor/midiscope/src/command"
	"golang.org/x/term"
)

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type lineReader interface {
	Readline() (string, error)
}

// Run reads commands from the terminal until quit, EOF, Ctrl-C or ctx is
// done.
func Run(ctx context.Context, t command.Target) error {
	items := make([]readline.PrefixCompleterInterface, 0)
	for _, name := range command.Names() {
		items = append(items, readline.PcItem(name))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("cannot start console: %w", err)
	}
	defer rl.Close()
	go func() {
		<-ctx.Done()
		rl.Close()
	}()
	fmt.Fprintln(rl.Stdout(), "type \"help\" for commands")
	err = serve(ctx, rl, rl.Stdout(), t)
	log.Println("console.Run() ended.")
	return err
}

func serve(ctx context.Context, r lineReader, w io.Writer, t command.Target) error {
	for {
		line, err := r.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		result, err := command.Eval(t, line)
		if errors.Is(err, command.ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(w, err)
			continue
		}
		if result != "" {
			fmt.Fprintln(w, result)
		}
	}
}
