// Package repl is an interactive Extended Basic highlighter. Each entry is
// one program line; indentation carries over from entry to entry the way
// it does down a listing.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/xbview/pkg/xb/hexview"
	"github.com/sambeau/xbview/pkg/xb/lexer"
	"github.com/sambeau/xbview/pkg/xb/program"
	"github.com/sambeau/xbview/pkg/xb/render"
)

const PROMPT = "XB> "

const LOGO = `
█░█ █▄▄
█▀█ █▄█ `

// Session holds the state carried between entries.
type Session struct {
	out        io.Writer
	style      string
	indent     int
	showTokens bool
	entries    []string
}

// NewSession creates a session that writes to out using the named chroma
// style.
func NewSession(out io.Writer, style string) *Session {
	return &Session{out: out, style: style}
}

// Eval handles one entry and reports whether the session should go on.
func (s *Session) Eval(input string) bool {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "":
		return true
	case trimmed == "exit" || trimmed == "quit":
		fmt.Fprintln(s.out, "Goodbye!")
		return false
	case strings.HasPrefix(trimmed, ":"):
		s.command(trimmed)
		return true
	}

	line, indent := program.ParseLine(input, s.indent)
	s.indent = indent
	s.entries = append(s.entries, input)

	if err := render.ANSILines(s.out, []*lexer.Line{line}, s.style); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	if s.showTokens {
		fmt.Fprintln(s.out, render.TokenTable(line))
	}
	return true
}

// command handles REPL meta-commands that start with ':'
func (s *Session) command(cmd string) {
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(s.out, "  :tokens         Toggle the token table")
		fmt.Fprintln(s.out, "  :hex DIGITS     Show hex digits as bytes")
		fmt.Fprintln(s.out, "  :list           Show every line entered so far")
		fmt.Fprintln(s.out, "  :style NAME     Change the colour style")
		fmt.Fprintln(s.out, "  :reset          Forget entered lines and indentation")
		fmt.Fprintln(s.out, "  exit, quit      Exit the REPL")

	case ":tokens":
		s.showTokens = !s.showTokens
		if s.showTokens {
			fmt.Fprintln(s.out, "Token table ON")
		} else {
			fmt.Fprintln(s.out, "Token table OFF")
		}

	case ":hex":
		rows, err := hexview.RenderBytes(arg)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		if len(rows) == 0 {
			fmt.Fprintln(s.out, "Usage: :hex DIGITS")
			return
		}
		fmt.Fprintln(s.out, render.HexTable(rows))

	case ":list":
		if len(s.entries) == 0 {
			fmt.Fprintln(s.out, "(no lines)")
			return
		}
		p := program.Parse(strings.Join(s.entries, "\n"))
		if err := render.ANSI(s.out, p, s.style); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}

	case ":style":
		if arg == "" {
			fmt.Fprintln(s.out, strings.Join(render.Styles(), " "))
			return
		}
		s.style = arg
		fmt.Fprintf(s.out, "Style set to %s\n", arg)

	case ":reset":
		s.indent = 0
		s.entries = nil
		fmt.Fprintln(s.out, "Session reset")

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// Start starts the REPL with line editing, history, and tab completion
func Start(out io.Writer, version, style string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(completions)

	historyFile := filepath.Join(os.TempDir(), ".xb_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s", LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	session := NewSession(out, style)
	for {
		input, err := line.Prompt(PROMPT)
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Fprintln(out, "^C")
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if !session.Eval(input) {
			return
		}
	}
}

// completions completes the keyword being typed at the end of the line.
// Liner replaces the whole line, so candidates carry the text before it.
func completions(line string) []string {
	if line == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		return nil
	}

	start := strings.LastIndexAny(line, " \t,;:()+-*/^&<>=\"") + 1
	head, word := line[:start], strings.ToUpper(line[start:])
	if word == "" {
		return nil
	}

	var matches []string
	for _, kw := range lexer.Keywords() {
		if strings.HasPrefix(kw, word) {
			matches = append(matches, head+kw)
		}
	}
	return matches
}
