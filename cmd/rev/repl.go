package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/thomasrohde/rev/pkg/ast"
	"github.com/thomasrohde/rev/pkg/formatter"
	"github.com/thomasrohde/rev/pkg/parser"
	"github.com/thomasrohde/rev/pkg/runtime"
)

const (
	historyFile = ".rev_history"
	promptMain  = "rev> "
	promptCont  = "...  "
)

const replHelp = `Enter statements or fn definitions. Incomplete input continues on the
next line. Each statement is remembered and can be undone.

  :env     list live variables
  :inv     show the inverse of the last statement
  :undo    run the inverse of the last statement
  :help    show this text
  :quit    leave the REPL
`

// prompter reads one line of input after showing a prompt.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// lineReader is the prompter used when input is not a terminal.
type lineReader struct {
	r   *bufio.Reader
	out io.Writer
}

func (l *lineReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(l.out, prompt)
	line, err := l.r.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newReplCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err)
				return &exitError{code: exitUsage}
			}
			out := cmd.OutOrStdout()
			rtOpts := []runtime.Option{
				runtime.WithConfig(cfg),
				runtime.WithStdout(out),
				runtime.WithLogger(newLogger(cmd.ErrOrStderr(), opts.verbose)),
			}

			if cmd.InOrStdin() != os.Stdin {
				// input lines and read share one buffered reader
				in := bufio.NewReader(cmd.InOrStdin())
				rt := runtime.New(append(rtOpts, runtime.WithStdin(in))...)
				return repl(cmd.Context(), rt.NewSession(), &lineReader{r: in, out: out}, out, cfg.Pretty)
			}

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)

			home, _ := os.UserHomeDir()
			histPath := filepath.Join(home, historyFile)
			if f, err := os.Open(histPath); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(histPath); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				}
			}()

			fmt.Fprintln(out, "Rev REPL. Type :help for commands, :quit to exit.")
			// stdin belongs to liner, so read cannot take input here
			rt := runtime.New(append(rtOpts, runtime.WithStdin(strings.NewReader("")))...)
			return repl(cmd.Context(), rt.NewSession(), &historyPrompter{ln}, out, cfg.Pretty)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

// historyPrompter records every completed line in the liner history.
type historyPrompter struct {
	ln *liner.State
}

func (h *historyPrompter) Prompt(prompt string) (string, error) {
	line, err := h.ln.Prompt(prompt)
	if err == nil && strings.TrimSpace(line) != "" {
		h.ln.AppendHistory(line)
	}
	return line, err
}

// repl runs the read-eval loop until EOF or :quit.
func repl(ctx context.Context, s *runtime.Session, p prompter, out io.Writer, pretty bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		code, ok := readUntilComplete(p, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := handleReplCommand(ctx, s, out, strings.ToLower(trimmed), pretty); quit {
				return nil
			}
			continue
		}

		// Ctrl-C stops a running statement, not the session
		evalCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		res, err := s.Eval(evalCtx, code)
		stop()
		if err != nil {
			printReplError(out, err, pretty)
			continue
		}
		for _, name := range res.Defined {
			fmt.Fprintf(out, "defined %s\n", name)
		}
	}
}

func handleReplCommand(ctx context.Context, s *runtime.Session, out io.Writer, line string, pretty bool) (quit bool) {
	switch line {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprint(out, replHelp)
	case ":env":
		bindings := s.Bindings()
		if len(bindings) == 0 {
			fmt.Fprintln(out, "(no variables)")
		}
		for _, b := range bindings {
			fmt.Fprintf(out, "%s = %s\n", b.Name, b.Value)
		}
	case ":inv":
		inv, err := s.LastInverse()
		if err != nil {
			printReplError(out, err, pretty)
			return false
		}
		fmt.Fprintln(out, formatter.FormatStmt(inv))
	case ":undo":
		inv, err := s.Undo(ctx)
		if err != nil {
			printReplError(out, err, pretty)
			return false
		}
		fmt.Fprintf(out, "undone: %s\n", formatter.FormatStmt(inv))
	default:
		fmt.Fprintln(out, "unknown command. Type :help for a list.")
	}
	return false
}

func printReplError(out io.Writer, err error, pretty bool) {
	if diags := runtime.Diagnostics(err); diags != nil {
		printDiags(out, diags, pretty)
		return
	}
	fmt.Fprintf(out, "error: %s\n", err)
}

// readUntilComplete reads lines until they form an input the parser does
// not consider cut short. ok is false at end of input.
func readUntilComplete(p prompter, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = p.Prompt(prompt)
		} else {
			line, err = p.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if err != nil {
			// liner.ErrPromptAborted drops the pending input
			if errors.Is(err, liner.ErrPromptAborted) {
				b.Reset()
				continue
			}
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, _, diags := parser.ParseInput(src, "<repl>", ast.NewSymbols())
		if len(diags) > 0 && parser.IsIncomplete(diags) {
			continue
		}
		return src, true
	}
}
