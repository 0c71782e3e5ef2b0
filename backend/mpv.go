package backend

import (
	"regexp"
	"strings"

	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/log"
)

var mpvSections = map[string]Section{
	"Available video outputs:": VideoOutputs,
	"Available audio outputs:": AudioOutputs,
	"Available demuxers:":      Demuxers,
	"Video decoders:":          VideoCodecs,
	"Audio decoders:":          AudioCodecs,
}

var (
	mpvModulePrefix = regexp.MustCompile(`^\[[\w/]+\]\s+`)

	mpvRow        = regexp.MustCompile(`^\s+(?P<name>[\w.-]+)\s+(?P<desc>\S.*)$`)
	mpvCodecFull  = regexp.MustCompile(`^\s+(?P<driver>\w+):(?P<name>[\w.-]+)\s+-\s+(?P<desc>.*)$`)
	mpvCodecShort = regexp.MustCompile(`^\s+(?P<name>[\w.-]+)\s+-\s+(?P<desc>.*)$`)

	mpvProperty = regexp.MustCompile(`^(?:INFO|ID)_(?P<key>[A-Z0-9_]+)=(?P<value>.*)$`)
	mpvAnswer   = regexp.MustCompile(`^ANS_(?P<key>[\w-]+)=(?P<value>.*)$`)
	mpvStatus   = regexp.MustCompile(`^STATUS:\s*(?P<pos>-?\d+(?:\.\d+)?)?\s*(?P<paused>yes|no)?\s*$`)
	mpvAVStatus = regexp.MustCompile(`^(?P<paused>\(Paused\)\s+)?(?:AV|A|V):\s*(?P<h>\d+):(?P<m>\d{2}):(?P<s>\d{2}(?:\.\d+)?)`)
	mpvTrack    = regexp.MustCompile(`^\s*(?:\(\+\)|\s)\s*(?P<kind>Video|Audio|Subs)\s+--(?:vid|aid|sid)=(?P<id>\d+)(?:\s+--(?:alang|slang)=(?P<lang>\S+))?(?:\s+'(?P<name>[^']*)')?`)
	mpvQuit     = regexp.MustCompile(`^Exiting\.\.\.\s+\((?P<reason>[^)]*)\)`)
)

var mpvTrackKinds = map[string]TrackKind{
	"Video": VideoTrack,
	"Audio": AudioTrack,
	"Subs":  SubtitleTrack,
}

// MPV parses the terminal output of mpv. Status and media properties arrive
// through the custom --term-status-msg and --term-playing-msg formats.
type MPV struct {
	emit    Emit
	section Section
	playing bool
	paused  bool
	demuxer int
	diag    diagnostics
}

// NewMPV creates an MPV parser that reports to emit.
func NewMPV(emit Emit) *MPV {
	m := &MPV{emit: emit}
	m.Reset()
	return m
}

// Reset implements LineConsumer.
func (m *MPV) Reset() {
	m.section = NoSection
	m.playing = false
	m.paused = false
	m.demuxer = 0
	m.diag.reset()
}

// LastDiagnostic implements LineConsumer.
func (m *MPV) LastDiagnostic() string {
	return m.diag.last
}

// Failure implements LineConsumer. Failures only count while nothing is playing.
func (m *MPV) Failure() exitcode.Code {
	if m.playing {
		return exitcode.None
	}
	return m.diag.failure
}

// FailureDetail implements LineConsumer.
func (m *MPV) FailureDetail() string {
	if m.playing {
		return ""
	}
	return m.diag.detail
}

// ParseLine implements LineConsumer.
func (m *MPV) ParseLine(raw string) bool {
	line := mpvModulePrefix.ReplaceAllString(clean(raw), "")
	if strings.TrimSpace(line) == "" {
		return false
	}

	if section, ok := mpvSections[strings.TrimSpace(line)]; ok {
		m.section = section
		return true
	}
	if m.diag.observe(line) {
		return true
	}
	if m.section != NoSection && m.parseRow(line) {
		return true
	}

	if g := mpvAnswer.FindStringSubmatch(line); g != nil {
		m.emit(Property{Key: g[1], Value: g[2], Answer: true})
		return true
	}
	if g := mpvProperty.FindStringSubmatch(line); g != nil {
		m.emit(Property{Key: g[1], Value: g[2]})
		return true
	}
	if g := mpvStatus.FindStringSubmatch(line); g != nil {
		m.status(atof(g[1]), g[2] == "yes")
		return true
	}
	if g := mpvAVStatus.FindStringSubmatch(line); g != nil {
		pos := atof(g[2])*3600 + atof(g[3])*60 + atof(g[4])
		m.status(pos, g[1] != "")
		return true
	}
	if m.section == NoSection {
		if g := mpvTrack.FindStringSubmatch(line); g != nil {
			m.emit(Track{Kind: mpvTrackKinds[g[1]], ID: atoi(g[2]), Lang: g[3], Name: g[4]})
			return true
		}
	}
	if g := mpvQuit.FindStringSubmatch(line); g != nil {
		if g[1] == "Quit" && !m.playing && m.diag.failure == exitcode.None {
			m.diag.failure = exitcode.QuitNoPlay
		}
		return true
	}
	if m.diag.observeGeneric(line) {
		return true
	}

	log.Tracef("mpv: skipped %q", line)
	return false
}

func (m *MPV) status(pos float64, paused bool) {
	if !m.playing {
		m.playing = true
		m.emit(Playing{})
	}
	if paused && !m.paused {
		m.emit(Paused{})
	}
	m.paused = paused
	m.emit(Status{Position: pos, Paused: paused})
}

func (m *MPV) parseRow(line string) bool {
	section := m.section
	switch section {
	case VideoOutputs, AudioOutputs:
		return firstMatch(line, []pattern{
			{mpvRow, func(g map[string]string) {
				m.emit(Driver{Section: section, Name: g["name"], Description: strings.TrimSpace(g["desc"])})
			}},
		})
	case Demuxers:
		return firstMatch(line, []pattern{
			{mpvRow, func(g map[string]string) {
				m.emit(Demuxer{Name: g["name"], ID: m.demuxer, Description: strings.TrimSpace(g["desc"])})
				m.demuxer++
			}},
		})
	case VideoCodecs, AudioCodecs:
		emitCodec := func(g map[string]string) {
			m.emit(Codec{
				Section:     section,
				Name:        g["name"],
				Driver:      g["driver"],
				Description: strings.TrimSpace(g["desc"]),
			})
		}
		return firstMatch(line, []pattern{
			{mpvCodecFull, emitCodec},
			{mpvCodecShort, emitCodec},
		})
	}
	return false
}
