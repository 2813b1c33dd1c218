package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/dmagro/eth-console/internal/format"
)

type command struct {
	help string
	run  func(w io.Writer) error
}

// Handle registers a console command such as ".help". Commands are matched
// against the whole trimmed input line.
func (h *Host) Handle(name, help string, run func(w io.Writer) error) {
	h.commands[name] = command{help: help, run: run}
}

func (h *Host) help(w io.Writer) error {
	tbl := format.NewTable(w, "Name", "Kind", "Members")
	for _, name := range h.exposed {
		kind, members := h.exposedMembers(name)
		tbl.AddRow(name, kind, joinLimited(members, 60))
	}
	tbl.Print()
	fmt.Fprintln(w)

	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	tbl = format.NewTable(w, "Command", "Description")
	for _, name := range names {
		tbl.AddRow(name, h.commands[name].help)
	}
	tbl.AddRow("exit", "Leave the console (also Ctrl-D)")
	tbl.Print()
	return nil
}

type readResult struct {
	line string
	err  error
}

// Run reads, evaluates and prints until the user exits, input ends or ctx
// is done. Errors raised by expressions are printed and never end the loop.
// SIGINT while an expression runs interrupts it.
func (h *Host) Run(ctx context.Context) error {
	if h.prompter == nil {
		return errors.New("shell: no prompter configured")
	}
	h.loadHistory()
	defer h.saveHistory()
	h.prompter.SetWordCompleter(h.complete)

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-interrupts:
				h.Interrupt()
			case <-done:
				return
			}
		}
	}()

	requests := make(chan string)
	results := make(chan readResult, 1)
	defer close(requests)
	go func() {
		for p := range requests {
			line, err := h.prompter.PromptInput(p)
			results <- readResult{line, err}
		}
	}()

	var (
		input string
		depth int
	)
	for {
		p := h.prompt
		if depth > 0 {
			p = strings.Repeat(".", depth*3) + " "
		}
		requests <- p

		var r readResult
		select {
		case <-ctx.Done():
			return nil
		case r = <-results:
		}

		if r.err != nil {
			if errors.Is(r.err, liner.ErrPromptAborted) {
				input, depth = "", 0
				continue
			}
			if errors.Is(r.err, io.EOF) {
				fmt.Fprintln(h.out)
				return nil
			}
			return r.err
		}

		if depth <= 0 && strings.TrimSpace(r.line) == "exit" {
			return nil
		}
		if depth <= 0 && strings.TrimSpace(r.line) == "" {
			continue
		}
		input += r.line + "\n"
		if depth = openBrackets(input); depth > 0 {
			continue
		}
		h.remember(strings.TrimSpace(input))
		h.dispatch(input)
		input, depth = "", 0
	}
}

func (h *Host) dispatch(input string) {
	if cmd, ok := h.commands[strings.TrimSpace(input)]; ok {
		if err := cmd.run(h.out); err != nil {
			fmt.Fprintln(h.out, format.Attention(err.Error()))
		}
		return
	}
	if out, ok := h.Evaluate(input); ok {
		fmt.Fprintln(h.out, out)
	}
}

// openBrackets counts brackets left open in src, ignoring those inside
// string literals and comments.
func openBrackets(src string) int {
	var (
		depth   int
		quote   rune
		escaped bool
		comment bool
		prev    rune
	)
	for _, c := range src {
		switch {
		case comment:
			if c == '\n' {
				comment = false
			}
		case quote != 0:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
		case c == '/' && prev == '/':
			comment = true
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '{' || c == '(' || c == '[':
			depth++
		case c == '}' || c == ')' || c == ']':
			depth--
		}
		prev = c
	}
	return depth
}

// remember appends a finished command to the history, skipping repeats.
func (h *Host) remember(command string) {
	if command == "" || (len(h.history) > 0 && h.history[len(h.history)-1] == command) {
		return
	}
	h.history = append(h.history, command)
	h.prompter.AppendHistory(command)
}

func (h *Host) loadHistory() {
	if h.histPath == "" {
		return
	}
	data, err := os.ReadFile(h.histPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.log.Warn("Failed to read console history", zap.String("path", h.histPath), zap.Error(err))
		}
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			h.history = append(h.history, line)
		}
	}
	h.prompter.SetHistory(h.history)
}

// maxHistory bounds the persisted history.
const maxHistory = 1000

func (h *Host) saveHistory() {
	if h.histPath == "" {
		return
	}
	lines := h.history
	if len(lines) > maxHistory {
		lines = lines[len(lines)-maxHistory:]
	}
	if err := os.WriteFile(h.histPath, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		h.log.Warn("Failed to write console history", zap.String("path", h.histPath), zap.Error(err))
	}
}
