package backend

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/util"
)

// clean removes color/control escape sequences and trailing blanks.
// Leading whitespace is kept because column layouts depend on it.
func clean(raw string) string {
	if strings.Contains(raw, "\x1b") {
		raw = ansi.Strip(raw)
	}
	return strings.TrimRight(raw, " \t")
}

// pattern pairs a regexp with the handler that runs on match.
// Lists of patterns are ordered most specific first.
type pattern struct {
	re     *regexp.Regexp
	handle func(groups map[string]string)
}

func firstMatch(line string, patterns []pattern) bool {
	for _, p := range patterns {
		if !p.re.MatchString(line) {
			continue
		}
		p.handle(util.ReGroups(p.re, line))
		return true
	}
	return false
}

type failureRule struct {
	re   *regexp.Regexp
	code exitcode.Code
}

// failureRules recognise backend messages that explain why playback could
// not happen. Both backends print near-identical wording for these.
var failureRules = []failureRule{
	{regexp.MustCompile(`^File not found: '.+'`), exitcode.FileOpen},
	{regexp.MustCompile(`(?i)^Failed to open .+`), exitcode.FileOpen},
	{regexp.MustCompile(`(?i)^Cannot open file '.+'`), exitcode.FileOpen},
	{regexp.MustCompile(`(?i)^Failed to recognize file format`), exitcode.UnrecognizedFormat},
	{regexp.MustCompile(`(?i)(server returned|http error) 403`), exitcode.HTTP403},
	{regexp.MustCompile(`(?i)(server returned|http error) 404`), exitcode.HTTP404},
	{regexp.MustCompile(`(?i)^No stream found to handle url`), exitcode.NoStream},
	{regexp.MustCompile(`(?i)^No video or audio streams selected`), exitcode.NoStream},
	{regexp.MustCompile(`(?i)(couldn't open dvd device|no medium found|libdvdread: can't open|no disc)`), exitcode.NoDisc},
	{regexp.MustCompile(`(?i)(invalid (dvd )?title|title \d+ (not found|does not exist))`), exitcode.TitleNotFound},
}

var diagnosticLine = regexp.MustCompile(`(?i)^(error|fatal|failed|cannot|can't|couldn't|could not)\b`)

// diagnostics tracks error-like output shared by both backend parsers.
type diagnostics struct {
	last    string
	failure exitcode.Code
	detail  string
}

// observe records line if it explains a failure. It reports whether the line
// matched a known failure rule.
func (d *diagnostics) observe(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, rule := range failureRules {
		if rule.re.MatchString(trimmed) {
			d.last = trimmed
			if d.failure == exitcode.None {
				d.failure = rule.code
				d.detail = trimmed
			}
			return true
		}
	}
	return false
}

// observeGeneric records a generic error line as the last diagnostic.
func (d *diagnostics) observeGeneric(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !diagnosticLine.MatchString(trimmed) {
		return false
	}
	d.last = trimmed
	return true
}

func (d *diagnostics) reset() {
	d.last = ""
	d.failure = exitcode.None
	d.detail = ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
