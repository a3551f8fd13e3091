package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/lazylang/stg"
)

const (
	appName     = "stg"
	historyFile = ".stg_history"
	promptMain  = "stg> "
	promptCont  = "...> "
)

var banner = fmt.Sprintf("stg %s — graph-reduction machine REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", stg.Version)

func red(s string) string   { return "\x1b[31m" + s + "\x1b[0m" }
func green(s string) string { return "\x1b[32m" + s + "\x1b[0m" }
func blue(s string) string  { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "version":
		fmt.Println(stg.Version)
		return
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`stg %s

Usage:
  %s run [-trace] [-depth n] <file.stg>   Run a program and print its value.
  %s repl                                 Start the REPL.
  %s fmt [-check] <file.stg ...>          Reformat program(s) canonically.
  %s version                              Print the version.

`, stg.Version, appName, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "log every machine transition to stderr")
	depth := fs.Int("depth", 3, "levels of constructor fields to force when printing")
	stats := fs.Bool("stats", false, "print step/update/alloc counters to stderr")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run [-trace] [-depth n] [-stats] <file.stg>\n", appName)
		return 2
	}
	file := fs.Arg(0)
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
		return 1
	}

	prog, perr := stg.ParseProgram(string(src))
	if perr != nil {
		fmt.Fprintln(os.Stderr, red(stg.WrapErrorWithName(perr, file, string(src)).Error()))
		return 1
	}
	m, lerr := stg.NewMachine(prog)
	if lerr != nil {
		fmt.Fprintln(os.Stderr, red(stg.WrapErrorWithName(lerr, file, string(src)).Error()))
		return 1
	}
	if *trace {
		m.Trace = os.Stderr
	}

	res, rerr := m.Run()
	if rerr != nil {
		fmt.Fprintln(os.Stderr, red(stg.WrapErrorWithName(rerr, file, string(src)).Error()))
		return 1
	}
	rendered, derr := stg.FormatResultDeep(m, res, *depth)
	if derr != nil {
		fmt.Fprintln(os.Stderr, red(stg.WrapErrorWithName(derr, file, string(src)).Error()))
		return 1
	}
	fmt.Println(blue(rendered))

	if *stats {
		st := m.Stats()
		fmt.Fprintf(os.Stderr, "steps=%d updates=%d prims=%d allocs=%d\n",
			st.Steps, st.Updates, st.Prims, m.Heap().Allocs())
	}
	return 0
}

// -----------------------------------------------------------------------------
// fmt
// -----------------------------------------------------------------------------

func cmdFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ExitOnError)
	check := fs.Bool("check", false, "report files whose formatting differs; write nothing")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s fmt [-check] <file.stg ...>\n", appName)
		return 2
	}

	dirty := 0
	for _, file := range fs.Args() {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
			return 1
		}
		prog, perr := stg.ParseProgram(string(src))
		if perr != nil {
			fmt.Fprintln(os.Stderr, red(stg.WrapErrorWithName(perr, file, string(src)).Error()))
			return 1
		}
		formatted := stg.FormatProgram(prog)
		if formatted == string(src) {
			continue
		}
		if *check {
			fmt.Println(file)
			dirty++
			continue
		}
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot write %s: %v\n", appName, file, err)
			return 1
		}
		fmt.Println(file)
	}
	if dirty > 0 {
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	sess := &session{}

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return 0
			case ":list":
				fmt.Print(green(sess.listing()))
			case ":reset":
				sess.binds = nil
				fmt.Println(green("cleared"))
			default:
				fmt.Println("commands: :quit  :list  :reset")
			}
			continue
		}

		out, err := sess.input(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(stg.WrapErrorWithSource(err, code).Error()))
			continue
		}
		if out != "" {
			fmt.Println(blue(out))
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// readByParseProbe accumulates lines until the input parses as a complete
// binding list or expression, using the parser's incomplete-input signal
// to decide when to keep reading.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := stg.ParseProgramInteractive(src); perr == nil || !stg.IsIncomplete(perr) {
			if perr == nil {
				return src, true
			}
			if _, eerr := stg.ParseExprInteractive(src); eerr == nil || !stg.IsIncomplete(eerr) {
				return src, true
			}
		}
	}
}

// session accumulates top-level bindings; expressions evaluate against
// the bindings entered so far.
type session struct {
	binds []stg.Binding
}

func (s *session) listing() string {
	if len(s.binds) == 0 {
		return "no bindings\n"
	}
	return stg.FormatProgram(&stg.Program{Binds: s.binds})
}

// input handles one complete REPL entry: a binding list extends the
// session; anything else is parsed as an expression, wrapped into an
// entry-point thunk, and run against the session's bindings.
func (s *session) input(code string) (string, error) {
	if prog, err := stg.ParseProgram(code); err == nil {
		for _, b := range prog.Binds {
			s.define(b)
		}
		return "", nil
	}

	expr, err := stg.ParseExpr(code)
	if err != nil {
		return "", err
	}

	binds := make([]stg.Binding, 0, len(s.binds)+1)
	for _, b := range s.binds {
		if b.Name == stg.EntryName {
			continue
		}
		binds = append(binds, b)
	}
	binds = append(binds, stg.Binding{
		Name: stg.EntryName,
		LF:   &stg.LambdaForm{Update: true, Body: expr},
	})

	m, err := stg.NewMachine(&stg.Program{Binds: binds})
	if err != nil {
		return "", err
	}
	res, err := m.Run()
	if err != nil {
		return "", err
	}
	return stg.FormatResultDeep(m, res, 3)
}

func (s *session) define(b stg.Binding) {
	for i, old := range s.binds {
		if old.Name == b.Name {
			s.binds[i] = b
			return
		}
	}
	s.binds = append(s.binds, b)
}
