package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"golang.org/x/term"
)

// ASCIILogo is printed at the top of interactive commands
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════╗
    ║   ___  ___   ___ ___   _   _     ___ ___    ___      ║
    ║  / __|/ _ \ / __|_ _| /_\ | |   / __| _ \  /_\ \    / ║
    ║  \__ \ (_) | (__ | | / _ \| |__| (__|   / / _ \ \/\/ ║
    ║  |___/\___/ \___|___/_/ \_\____|\___|_|_\/_/ \_\_/\_/ ║
    ║            SUBREDDIT INGESTION UTILITY v1.0           ║
    ╚═══════════════════════════════════════════════════════╝
`

var (
	mu       sync.Mutex
	out      io.Writer = os.Stdout
	useColor           = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
	quiet    bool
)

// SetOutput redirects all printing, e.g. to a cobra command's writer.
// Color is switched off unless the writer is a terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	f, ok := w.(*os.File)
	useColor = ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
}

// SetColor forces ANSI colors on or off
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	useColor = enabled
}

// SetQuietMode suppresses everything but errors
func SetQuietMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize wraps text in ANSI codes while colors are enabled
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		enabled := useColor
		mu.Unlock()
		if !enabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func write(important bool, s string) {
	mu.Lock()
	defer mu.Unlock()
	if quiet && !important {
		return
	}
	fmt.Fprint(out, s)
}

func PrintLogo() {
	write(false, Cyan(ASCIILogo))
}

// PrintError prints msg, and the first arg as detail when given
func PrintError(msg string, args ...interface{}) {
	write(true, Red(withDetail(msg, args))+"\n")
}

func PrintSuccess(msg string) {
	write(false, Green(msg)+"\n")
}

func PrintInfo(label string, value string) {
	write(false, fmt.Sprintf("%s: %s\n", Cyan(label), Yellow(value)))
}

func PrintWarning(msg string, args ...interface{}) {
	write(false, Yellow(withDetail(msg, args))+"\n")
}

func PrintHighlight(msg string) {
	write(false, Magenta(msg)+"\n")
}

// Println prints plain text
func Println(a ...interface{}) {
	write(false, fmt.Sprintln(a...))
}

// PrintTable prints rows aligned under headers
func PrintTable(headers []string, rows [][]string) {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
	write(false, b.String())
}

// PrintCounts prints label/count pairs in the given order
func PrintCounts(labels []string, counts []int) {
	var b strings.Builder
	for i, label := range labels {
		fmt.Fprintf(&b, "  %-18s %s\n", label, Yellow(fmt.Sprint(counts[i])))
	}
	write(false, b.String())
}

func withDetail(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	if s, ok := args[0].(string); ok && s == "" {
		return msg
	}
	return msg + ": " + fmt.Sprintf("%v", args[0])
}
