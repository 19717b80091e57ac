package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Executor runs one parsed command line.
type Executor func(ctx context.Context, args []string) error

// Config configures a REPL.
type Config struct {
	Input  io.Reader
	Output io.Writer

	// Prompt is called before every line; it typically shows the current
	// location and identity.
	Prompt func() string

	Exec     Executor
	Commands []string
	History  *History
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    func() string
	exec      Executor
	completer *Completer
	history   *History
}

// New creates a new REPL instance.
func New(cfg Config) *REPL {
	r := &REPL{
		input:     cfg.Input,
		output:    cfg.Output,
		prompt:    cfg.Prompt,
		exec:      cfg.Exec,
		completer: NewCompleter(cfg.Commands),
		history:   cfg.History,
	}
	if r.prompt == nil {
		r.prompt = func() string { return "jobdesk> " }
	}
	if r.history == nil {
		r.history = NewHistory("")
	}
	return r
}

// Run starts the REPL loop. It returns nil on exit, quit or EOF, and
// ctx.Err() when ctx is cancelled between lines.
func (r *REPL) Run(ctx context.Context) error {
	reader := bufio.NewReader(r.input)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(r.output, r.prompt())

		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		args, perr := Split(line)
		if perr != nil {
			fmt.Fprintf(r.output, "error: %v\n", perr)
			continue
		}

		switch args[0] {
		case "exit", "quit":
			return nil
		case "help":
			r.help(args[1:])
			continue
		case "history":
			for i := r.history.Len() - 1; i >= 0; i-- {
				fmt.Fprintln(r.output, r.history.Get(i))
			}
			continue
		}

		if r.exec != nil {
			if err := r.exec(ctx, args); err != nil {
				fmt.Fprintf(r.output, "error: %v\n", err)
			}
		}
	}
}

func (r *REPL) help(args []string) {
	prefix := strings.Join(args, " ")
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no command matches %q\n", prefix)
		return
	}
	for _, m := range matches {
		fmt.Fprintln(r.output, "  "+m)
	}
}

// Split breaks a line into words. Single and double quotes group words;
// a backslash escapes the next character outside single quotes.
func Split(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, c := range line {
		switch {
		case escaped:
			cur.WriteRune(c)
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}
