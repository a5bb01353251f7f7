// Package cabinlog is cabin's process-wide console logger: cargo-style
// right-aligned progress headers and colored Error:/Warning: lines via
// gookit/color (the same theme-printer API other Go package-manager-style
// tools in the pack use — color.Danger.Printf, color.Info.Printf, etc.),
// plus leveled debug/trace output via phuslu/log, whose console writer is
// given a formatter that renders the exact "[Cabin DEBUG <fn>]"/"[Cabin
// TRACE <fn>]" line shape while the library still does level filtering and
// field capture.
package cabinlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/phuslu/log"
)

// Level is cabin's own verbosity tier, set by -q/-v/-vv or CABIN_LOG.
type Level int

const (
	LevelQuiet Level = iota
	LevelNormal
	LevelVerbose
	LevelVeryVerbose
)

// ParseLevel maps CABIN_LOG's string values ("off", "debug", "trace") to a
// Level; empty/unrecognized values yield LevelNormal.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "off":
		return LevelNormal
	case "debug":
		return LevelVerbose
	case "trace":
		return LevelVeryVerbose
	default:
		return LevelNormal
	}
}

type state struct {
	level  Level
	logger log.Logger
	out    io.Writer
}

var (
	mu      sync.Mutex
	current = newState(LevelNormal, "auto", os.Stderr)
)

func newState(level Level, colorMode string, w io.Writer) *state {
	applyColorMode(colorMode)
	phusluLevel := log.InfoLevel
	switch level {
	case LevelVerbose:
		phusluLevel = log.DebugLevel
	case LevelVeryVerbose:
		phusluLevel = log.TraceLevel
	}
	return &state{
		level: level,
		out:   w,
		logger: log.Logger{
			Level: phusluLevel,
			Writer: &log.ConsoleWriter{
				Writer:    w,
				Formatter: consoleFormatter,
			},
		},
	}
}

// Configure sets the process-wide level, color mode ("auto", "always",
// "never"), and output stream. Safe to call more than once (e.g. once
// flags are parsed); each call replaces the prior singleton.
func Configure(level Level, colorMode string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	current = newState(level, colorMode, w)
}

func applyColorMode(mode string) {
	switch strings.ToLower(mode) {
	case "always":
		color.Enable = true
	case "never":
		color.Enable = false
	default: // "auto": leave gookit/color's own terminal detection in place
	}
}

func get() *state {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// headerWidth is the right-aligned column width progress verbs pad to
// ("Analyzing", "Compiling", "Finished", "Running", "Ok").
const headerWidth = 12

// Info prints a right-aligned, green/bold progress header followed by a
// free-form detail message: "   Compiling widget v0.1.0".
func Info(verb, format string, args ...any) {
	s := get()
	if s.level == LevelQuiet {
		return
	}
	header := color.New(color.FgGreen, color.OpBold).Sprint(fmt.Sprintf("%*s", headerWidth, verb))
	fmt.Fprintf(s.out, "%s %s\n", header, fmt.Sprintf(format, args...))
}

// Warn prints a yellow "Warning: <message>" line.
func Warn(format string, args ...any) {
	s := get()
	if s.level == LevelQuiet {
		return
	}
	fmt.Fprintln(s.out, color.Warn.Sprint("Warning: "+fmt.Sprintf(format, args...)))
}

// Error prints a red/bold "Error: <message>" line, always (even when quiet).
func Error(format string, args ...any) {
	s := get()
	fmt.Fprintln(s.out, color.Danger.Sprint("Error: "+fmt.Sprintf(format, args...)))
}

// Debugf emits a "[Cabin DEBUG <fn>] <message>" line when the active level
// is verbose or very-verbose.
func Debugf(fn, format string, args ...any) {
	get().logger.Debug().Str("fn", fn).Msgf(format, args...)
}

// Tracef emits a "[Cabin TRACE <fn>] <message>" line when the active level
// is very-verbose.
func Tracef(fn, format string, args ...any) {
	get().logger.Trace().Str("fn", fn).Msgf(format, args...)
}

// consoleFormatter renders phuslu/log entries as "[Cabin DEBUG <fn>]
// <message>" / "[Cabin TRACE <fn>] <message>", the literal wire shape
// verbose/very-verbose output must match regardless of which logging
// library produces it.
func consoleFormatter(w io.Writer, a *log.FormatterArgs) (int, error) {
	levelWord := strings.ToUpper(a.Level)
	fn := ""
	for _, kv := range a.KeyValues {
		if kv.Key == "fn" {
			fn = kv.Value
		}
	}
	return fmt.Fprintf(w, "[Cabin %s %s] %s\n", levelWord, fn, a.Message)
}
