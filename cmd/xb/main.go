package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sambeau/xbview/config"
	"github.com/sambeau/xbview/pkg/xb/hexview"
	"github.com/sambeau/xbview/pkg/xb/program"
	"github.com/sambeau/xbview/pkg/xb/refdoc"
	"github.com/sambeau/xbview/pkg/xb/render"
	"github.com/sambeau/xbview/pkg/xb/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.4.0"

// errUsage marks errors that should exit with status 2.
var errUsage = errors.New("usage")

// errReported means the problem was already printed; exit 1 quietly.
var errReported = errors.New("reported")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run executes the command line and returns the exit status.
func run(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	if len(args) == 0 {
		printHelp(stdout)
		return 0
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "-h", "-help", "--help", "help":
		printHelp(stdout)
		return 0
	case "-V", "-version", "--version", "version":
		fmt.Fprintf(stdout, "xb version %s\n", Version)
		return 0
	case "render":
		err = renderCommand(rest, stdout, stderr)
	case "fmt":
		err = fmtCommand(rest, stdout, stderr)
	case "hex":
		err = hexCommand(rest, stdout, stderr)
	case "ref":
		err = refCommand(rest, stdout, stderr, getenv)
	case "check":
		err = checkCommand(rest, stdout, stderr)
	case "repl":
		style := render.DefaultStyle
		if cfg, cerr := config.Load("", getenv); cerr == nil {
			style = cfg.Render.Style
		}
		repl.Start(stdout, Version, style)
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n", cmd)
		fmt.Fprintln(stderr, "Run 'xb -help' for usage.")
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errReported):
		return 1
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `xb - TI Extended BASIC listing tool version %s

Usage:
  xb <command> [options] [arguments]

Commands:
  render [options] <file>      Render a listing
  fmt <file>...                Print listings with nesting indentation
  hex <digits>...              Show hex digits as rows of bits
  ref [options] [keyword]      Show the keyword reference
  check <file>...              Report statistics and dangling references
  repl                         Start an interactive tokenizer

Options:
  -h, -help                    Show this help message
  -V, -version                 Show version information

Render Options:
  -format <name>               html, page, text, ansi or json (default ansi)
  -style <name>                Terminal colour style (default %s)
  -dump                        Dump the parsed line tree instead of rendering

Reference Options:
  -reference <path>            Reference YAML (default from xbview.yaml)
  -html                        Write HTML instead of text

Examples:
  xb render game.xb            Print a coloured listing
  xb render -format page game.xb > game.html
  xb fmt *.xb                  Print indented listings
  xb hex 1898BC7E              Show a character pattern
  xb ref "CALL HCHAR"          Look up a keyword
  xb check *.xb                Find GOTOs to missing lines
`, Version, render.DefaultStyle)
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name, usage string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
	}
	return fs
}

// parseFlags parses args, turning flag errors into errUsage.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func readProgram(path string) (*program.Program, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return program.Parse(string(data)), string(data), nil
}

func renderCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("render", `xb render - render a listing

Usage:
  xb render [-format html|page|text|ansi|json] [-style name] [-dump] <file>
`, stderr)
	format := fs.String("format", "ansi", "Output format")
	style := fs.String("style", render.DefaultStyle, "Terminal colour style")
	dump := fs.Bool("dump", false, "Dump the parsed line tree")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "error: render takes exactly one file")
		fs.Usage()
		return errUsage
	}

	path := fs.Arg(0)
	p, source, err := readProgram(path)
	if err != nil {
		return err
	}

	if *dump {
		cfg := spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		}
		cfg.Fdump(stdout, p.Lines)
		return nil
	}

	name := filepath.Base(path)
	opts := render.Options{Anchors: true, BackRefs: true}
	switch *format {
	case "ansi":
		return render.ANSI(stdout, p, *style)
	case "text":
		_, err = io.WriteString(stdout, render.Text(p))
	case "html":
		_, err = io.WriteString(stdout, render.Fragment(p, opts))
	case "page":
		_, err = io.WriteString(stdout, render.Page(p, render.PageOptions{
			Options: opts,
			Title:   name,
			Source:  source,
		}))
	case "json":
		return render.JSON(stdout, name, p)
	default:
		fmt.Fprintf(stderr, "error: unknown format %q\n", *format)
		return errUsage
	}
	return err
}

func fmtCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("fmt", `xb fmt - print listings with nesting indentation

Usage:
  xb fmt <file>...
`, stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "error: no files specified")
		fs.Usage()
		return errUsage
	}

	var failed bool
	for _, path := range fs.Args() {
		p, _, err := readProgram(path)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			failed = true
			continue
		}
		if fs.NArg() > 1 {
			fmt.Fprintf(stdout, "==> %s <==\n", path)
		}
		io.WriteString(stdout, render.Text(p))
	}
	if failed {
		return errReported
	}
	return nil
}

func hexCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("hex", `xb hex - show hex digits as rows of bits

Usage:
  xb hex <digits>...
`, stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "error: no digits specified")
		fs.Usage()
		return errUsage
	}

	for _, digits := range fs.Args() {
		rows, err := hexview.RenderBytes(digits)
		if err != nil {
			return fmt.Errorf("%s: %w", digits, err)
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintln(stdout, render.HexTable(rows))
	}
	return nil
}

func refCommand(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := newFlagSet("ref", `xb ref - show the keyword reference

Usage:
  xb ref [-reference path] [-html] [keyword]
`, stderr)
	path := fs.String("reference", "", "Reference YAML file")
	asHTML := fs.Bool("html", false, "Write HTML")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *path == "" {
		cfg, err := config.Load("", getenv)
		if err != nil {
			return err
		}
		*path = cfg.Reference
	}
	if *path == "" {
		return errors.New("no reference configured (use -reference or set reference in xbview.yaml)")
	}

	ref, err := refdoc.Load(*path)
	if err != nil {
		return err
	}

	if fs.NArg() > 0 {
		name := strings.Join(fs.Args(), " ")
		kw, ok := ref.Lookup(name)
		if !ok {
			return fmt.Errorf("no reference entry for %q", name)
		}
		if *asHTML {
			one := &refdoc.Reference{Keywords: []*refdoc.Keyword{kw}}
			return one.RenderHTML(stdout, render.Options{})
		}
		_, err = io.WriteString(stdout, kw.Text())
		return err
	}

	if *asHTML {
		return ref.RenderPage(stdout, "Extended BASIC Reference", render.Options{})
	}
	for _, name := range ref.Names() {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

func checkCommand(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("check", `xb check - report statistics and dangling references

Usage:
  xb check <file>...
`, stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "error: no files specified")
		fs.Usage()
		return errUsage
	}

	pr := message.NewPrinter(language.English)
	var bad bool
	for _, path := range fs.Args() {
		p, _, err := readProgram(path)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			bad = true
			continue
		}

		st := p.Stats()
		pr.Fprintf(stdout, "%s: %d lines, %d instructions, %d tokens, %d references, %d subprograms\n",
			path, st.Lines, st.Instructions, st.Tokens, st.References, st.Subs)

		for _, d := range p.Dangling() {
			bad = true
			target := d.Token.TargetSub
			if target == "" {
				target = fmt.Sprint(d.Token.TargetLine)
			}
			fmt.Fprintf(stdout, "%s:%s: %s refers to missing %s\n", path, d.From.Label(), d.Token.Text, target)
		}
	}
	if bad {
		return errReported
	}
	return nil
}
