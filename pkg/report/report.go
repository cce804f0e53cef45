// Package report renders compiler diagnostics for a terminal: a banner with
// the error kind and file name, the offending source line and a caret under
// the reported column.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"silc/pkg/compiler"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgLightBlue
)

var kindTitles = map[compiler.ErrorKind]string{
	compiler.KindLex:      "Token Error",
	compiler.KindParse:    "Syntax Error",
	compiler.KindSemantic: "Semantic Error",
	compiler.KindCodegen:  "Internal Error",
}

const icePostlude = "This is likely a bug in the compiler, not in your program."

// maxBannerWidth caps the banner at this many columns.
const maxBannerWidth = 50

// Reporter writes diagnostics to an output stream.
type Reporter struct {
	out   io.Writer
	color bool
}

// New returns a Reporter writing to out. When color is false no escape
// sequences are emitted.
func New(out io.Writer, color bool) *Reporter {
	return &Reporter{out: out, color: color}
}

// ForFile returns a Reporter for f that colours its output only when f is a
// terminal and noColor is not set.
func ForFile(f *os.File, noColor bool) *Reporter {
	return New(f, !noColor && IsTerminal(f))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *Reporter) paint(style *pterm.Style, s string) string {
	if !r.color {
		return s
	}
	return style.Sprint(s)
}

func (r *Reporter) tint(c pterm.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}

// Report prints err. Compiler diagnostics get a banner and a source
// excerpt taken from src; anything else is printed as a tagged message.
func (r *Reporter) Report(filename, src string, err error) {
	var diag compiler.Diagnostic
	if errors.As(err, &diag) {
		r.Diagnostic(filename, src, diag)
		return
	}
	r.Error(filepath.Base(filename), err)
}

// Error prints a standard Go error behind a tag.
func (r *Reporter) Error(tag string, err error) {
	fmt.Fprintln(r.out, r.paint(ErrorStyleBG, " "+tag+" ")+" "+r.tint(ErrorColorFG, err.Error()))
}

// Success prints an informational message behind a tag.
func (r *Reporter) Success(tag, msg string) {
	fmt.Fprintln(r.out, r.paint(SuccessStyleBG, " "+tag+" ")+" "+r.tint(SuccessColorFG, msg))
}

// Diagnostic prints d with the source line it points at.
func (r *Reporter) Diagnostic(filename, src string, d compiler.Diagnostic) {
	r.banner(kindTitles[d.Kind()], filepath.Base(filename))

	pos := d.Position()
	if pos.IsValid() {
		fmt.Fprintf(r.out, "%s:%s: %s\n", filename, pos, d.Message())
		if line, ok := sourceLine(src, pos.Line); ok {
			r.codeSelection(line, pos)
		}
	} else {
		fmt.Fprintf(r.out, "%s: %s\n", filename, d.Message())
	}
	if d.Kind() == compiler.KindCodegen {
		fmt.Fprintln(r.out, icePostlude)
	}
	fmt.Fprintln(r.out)
}

func (r *Reporter) banner(title, filename string) {
	width := maxBannerWidth
	if r.color {
		width = min(pterm.GetTerminalWidth()/2, maxBannerWidth)
	}
	dashes := max(width-len(title)-len(filename)-2, 3)

	fmt.Fprint(r.out, "\n-- ")
	fmt.Fprint(r.out, r.paint(ErrorStyleBG, title))
	fmt.Fprint(r.out, " "+strings.Repeat("-", dashes)+" ")
	fmt.Fprintln(r.out, r.tint(InfoColorFG, filename))
}

// codeSelection prints the line with its number and a caret under pos.Col.
func (r *Reporter) codeSelection(line string, pos compiler.Pos) {
	gutter := len(strconv.Itoa(pos.Line)) + 1

	col := min(max(pos.Col-1, 0), len(line))
	prefix := strings.ReplaceAll(line[:col], "\t", "    ")

	fmt.Fprintln(r.out)
	fmt.Fprint(r.out, r.tint(InfoColorFG, fmt.Sprintf("%-*d", gutter, pos.Line)))
	fmt.Fprintln(r.out, "|  "+strings.ReplaceAll(line, "\t", "    "))
	fmt.Fprint(r.out, strings.Repeat(" ", gutter)+"|  "+strings.Repeat(" ", len(prefix)))
	fmt.Fprintln(r.out, r.tint(ErrorColorFG, "^"))
}

// sourceLine returns the 1-based line n of src.
func sourceLine(src string, n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	lines := strings.Split(src, "\n")
	if n > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[n-1], "\r"), true
}
