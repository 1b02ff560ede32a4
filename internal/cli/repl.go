package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aretw0/statepath/internal/presentation/tui"
	"github.com/aretw0/statepath/pkg/memory"
)

// ReplOptions configures an interactive session.
type ReplOptions struct {
	In io.Reader
	// Interactive shows the banner and prompt.
	Interactive bool
	Version     string
}

const replHelp = `Enter an expression, a path or text with ${...} to evaluate it.
  :get <path>          print the value at path
  :set <path> <value>  write a YAML value at path
  :del <path>          remove the value at path
  :scopes              list the scopes in memory
  :dump                print the whole memory
  :help                show this help
  :quit                leave
`

// Repl evaluates lines from ropts.In against one memory until EOF, :quit
// or ctx is done. Errors are printed and the session continues.
func Repl(ctx context.Context, opts Options, ropts ReplOptions) error {
	logger, err := createLogger(opts)
	if err != nil {
		return err
	}
	engine, err := createEngine(opts, logger)
	if err != nil {
		return err
	}
	sm, err := loadMemory(engine, opts.MemoryFile)
	if err != nil {
		return err
	}
	p := newPrinter(opts)

	if ropts.Interactive {
		tui.PrintBanner(p.writer(), ropts.Version)
		fmt.Fprintln(p.writer(), "Type :help for commands.")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(ropts.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if ropts.Interactive {
			fmt.Fprint(p.writer(), "> ")
		}
		var line string
		select {
		case <-ctx.Done():
			if ropts.Interactive {
				fmt.Fprintln(p.writer())
			}
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		quit, err := replLine(sm, p, line, func(text string) (any, error) {
			return engine.Evaluate(text, sm)
		})
		if err != nil {
			p.fail(err)
		}
		if quit {
			return nil
		}
	}
}

func replLine(sm *memory.StateManager, p *printer, line string, eval func(string) (any, error)) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		v, err := eval(line)
		if err != nil {
			return false, err
		}
		return false, p.value(v)
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "q", "quit", "exit":
		return true, nil
	case "h", "help":
		p.text(replHelp)
	case "get":
		v, err := sm.GetValue(rest)
		if err != nil {
			return false, err
		}
		return false, p.value(v)
	case "set":
		path, raw, ok := strings.Cut(rest, " ")
		if !ok {
			return false, fmt.Errorf("usage: :set <path> <value>")
		}
		value, err := parseValue(strings.TrimSpace(raw))
		if err != nil {
			return false, err
		}
		return false, sm.SetValue(path, value)
	case "del":
		return false, sm.RemoveValue(rest)
	case "scopes":
		snap := sm.Snapshot()
		names := make([]string, 0, len(snap))
		for name := range snap {
			names = append(names, name)
		}
		slices.Sort(names)
		p.text(strings.Join(names, "\n"))
	case "dump":
		return false, p.value(sm.Snapshot())
	default:
		return false, fmt.Errorf("unknown command :%s (try :help)", cmd)
	}
	return false, nil
}
