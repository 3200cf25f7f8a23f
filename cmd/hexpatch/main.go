// Command hexpatch is the thin, headless command surface over the
// hexpatch library: it wires flag/env configuration to a Session and
// drives it from line-oriented commands on stdin, matching the
// command surface design §6 assigns to the surrounding CLI (quit,
// save, open, patch, jump, find, find_symbol, change_view, undo,
// redo). The interactive terminal UI itself is out of scope.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/xyproto/hexpatch/internal/codec"
	x86codec "github.com/xyproto/hexpatch/internal/codec/x86"
	"github.com/xyproto/hexpatch/internal/header"
	"github.com/xyproto/hexpatch/internal/hexpatch"
	"github.com/xyproto/hexpatch/internal/vfs"
)

const versionString = "hexpatch 0.1.0"

// VerboseMode mirrors the teacher's package-level debug-print gate
// (main.go's VerboseMode), generalized here to also echo every
// notify.Log entry to stderr as it's produced.
var VerboseMode bool

func main() {
	defaultHistoryLimit := env.Int("HEXPATCH_HISTORY_LIMIT", 1000)
	defaultVerbose := env.Bool("HEXPATCH_VERBOSE")
	defaultWidth := env.Int("HEXPATCH_WIDTH", 80)
	defaultHeight := env.Int("HEXPATCH_HEIGHT", 24)

	historyLimit := flag.Int("history-limit", defaultHistoryLimit, "bounded undo/redo history size (0 = unbounded)")
	verbose := flag.Bool("v", defaultVerbose, "verbose mode (echo the notification log to stderr)")
	width := flag.Int("width", defaultWidth, "terminal width used to derive blocks-per-row")
	height := flag.Int("height", defaultHeight, "viewport height in rows")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(versionString)
		return
	}

	VerboseMode = *verbose

	fs, err := vfs.NewLocal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hexpatch: %v\n", err)
		os.Exit(1)
	}

	registry := codec.NewRegistry()
	registry.Register(header.ArchX86_64, x86codec.NewDecoder(), x86codec.NewEncoder())

	sess := hexpatch.New(fs, registry, *historyLimit, *width, *height)

	if args := flag.Args(); len(args) > 0 {
		if err := sess.Open(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "hexpatch: %v\n", err)
			os.Exit(1)
		}
		if VerboseMode {
			drainLog(sess)
		}
	}

	runREPL(sess, os.Stdin, os.Stdout)
}

// runREPL drives the Session from newline-separated commands, one per
// line, in the vocabulary design §6 names. It is the headless stand-in
// for the key bindings an interactive frontend would attach.
func runREPL(sess *hexpatch.Session, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)
	w := bufio.NewWriter(out)
	defer w.Flush()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !dispatch(sess, line, w) {
			w.Flush()
			return
		}
		w.Flush()
		if VerboseMode {
			drainLog(sess)
		} else {
			sess.Log.Clear()
		}
	}
}

// dispatch executes one command line and reports whether the REPL
// should keep reading (false only for "quit").
func dispatch(sess *hexpatch.Session, line string, w *bufio.Writer) bool {
	cmd, rest := splitCommand(line)
	switch cmd {
	case "quit":
		if rest == "save" {
			if err := sess.Save(""); err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
			}
		}
		return false
	case "save":
		if err := sess.Save(rest); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	case "open":
		if err := sess.Open(rest); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	case "patch":
		sess.Patch(rest)
	case "jump":
		if err := sess.Jump(rest); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		} else {
			printPosition(sess, w)
		}
	case "find":
		if sess.Find(rest) {
			printPosition(sess, w)
		} else {
			fmt.Fprintf(w, "not found: %q\n", rest)
		}
	case "find_symbol":
		for _, m := range sess.FindSymbol(rest) {
			fmt.Fprintf(w, "%-32s 0x%x (%d)\n", m.Name, m.Address, m.Score)
		}
	case "change_view":
		printPosition(sess, w)
	case "undo":
		sess.Undo()
		printPosition(sess, w)
	case "redo":
		sess.Redo()
		printPosition(sess, w)
	default:
		fmt.Fprintf(w, "error: unknown command %q\n", cmd)
	}
	return true
}

func splitCommand(line string) (cmd, rest string) {
	fields := strings.SplitN(line, " ", 2)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.TrimSpace(fields[1])
}

func printPosition(sess *hexpatch.Session, w *bufio.Writer) {
	pos := sess.Nav.Position()
	dirty := " "
	if sess.Dirty() {
		dirty = "*"
	}
	fmt.Fprintf(w, "%s0x%x\n", dirty, pos.GlobalByteIndex)
}

func drainLog(sess *hexpatch.Session) {
	for _, n := range sess.Log.Entries() {
		fmt.Fprintf(os.Stderr, "%s: %s\n", n.Severity, n.Message)
	}
	sess.Log.Clear()
}
