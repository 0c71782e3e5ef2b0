package backend

import (
	"regexp"
	"strings"

	"github.com/mpfront/mpfront/exitcode"
	"github.com/mpfront/mpfront/log"
)

var mplayerSections = map[string]Section{
	"ID_VIDEO_OUTPUTS": VideoOutputs,
	"ID_AUDIO_OUTPUTS": AudioOutputs,
	"ID_DEMUXERS":      Demuxers,
	"ID_VIDEO_CODECS":  VideoCodecs,
	"ID_AUDIO_CODECS":  AudioCodecs,
}

var (
	mplayerDriverTab  = regexp.MustCompile(`^\t(?P<name>\S+)\t(?P<desc>.*)$`)
	mplayerDriverCols = regexp.MustCompile(`^\s+(?P<name>[\w.-]+)\s+(?P<desc>\S.*)$`)

	mplayerDemuxerFull   = regexp.MustCompile(`^\s*(?P<name>[A-Za-z0-9_]+)\s+(?P<id>\d+)\s+(?P<info>\([^)]*\))\s+(?P<desc>.*)$`)
	mplayerDemuxerSimple = regexp.MustCompile(`^\s*(?P<name>[A-Za-z0-9_]+)\s+(?P<id>\d+)\s+(?P<desc>.*)$`)
	mplayerDemuxerBare   = regexp.MustCompile(`^\s+(?P<name>[A-Za-z0-9_]+)\s+(?P<desc>[^\d\s].*)$`)

	mplayerCodecFull   = regexp.MustCompile(`^(?P<name>[A-Za-z0-9_]+)\s+(?P<driver>[A-Za-z0-9_]+)\s+(?P<status>working|problems|crashing|untested|buggy)\s+(?P<desc>.*)$`)
	mplayerCodecSimple = regexp.MustCompile(`^(?P<name>[A-Za-z0-9_]+)\s+(?P<driver>[A-Za-z0-9_]+)\s+(?P<desc>\S.*)$`)

	mplayerID     = regexp.MustCompile(`^ID_(?P<key>[A-Z0-9_]+)=(?P<value>.*)$`)
	mplayerAnswer = regexp.MustCompile(`^ANS_(?P<key>[A-Za-z0-9_]+)=(?P<value>.*)$`)
	mplayerStatus = regexp.MustCompile(`^(?:A|V):\s*(?P<pos>-?\d+(?:\.\d+)?)`)
	mplayerPause  = regexp.MustCompile(`^\s*=+\s+PAUSE\s+=+\s*$`)
	mplayerStart  = regexp.MustCompile(`^Starting playback\.\.\.`)

	mplayerTrackID   = regexp.MustCompile(`^(?P<kind>AUDIO|SUBTITLE|VIDEO)_ID$`)
	mplayerTrackAttr = regexp.MustCompile(`^(?P<kind>AID|SID|VID)_(?P<id>\d+)_(?P<attr>LANG|NAME)$`)
	mplayerChapter   = regexp.MustCompile(`^CHAPTER_(?P<id>\d+)_(?P<attr>START|NAME)$`)
	mplayerTitle     = regexp.MustCompile(`^DVD_TITLE_(?P<id>\d+)_LENGTH$`)
)

var mplayerTrackKinds = map[string]TrackKind{
	"AUDIO": AudioTrack, "AID": AudioTrack,
	"SUBTITLE": SubtitleTrack, "SID": SubtitleTrack,
	"VIDEO": VideoTrack, "VID": VideoTrack,
}

type trackKey struct {
	kind TrackKind
	id   int
}

// MPlayer parses the output of mplayer running with -slave -identify.
type MPlayer struct {
	emit     Emit
	section  Section
	playing  bool
	diag     diagnostics
	tracks   map[trackKey]*Track
	chapters map[int]*Chapter

	rows     []pattern
	metadata []pattern
}

// NewMPlayer creates an MPlayer parser that reports to emit.
func NewMPlayer(emit Emit) *MPlayer {
	m := &MPlayer{emit: emit}
	m.Reset()
	return m
}

// Reset implements LineConsumer.
func (m *MPlayer) Reset() {
	m.section = NoSection
	m.playing = false
	m.diag.reset()
	m.tracks = make(map[trackKey]*Track)
	m.chapters = make(map[int]*Chapter)
}

// LastDiagnostic implements LineConsumer.
func (m *MPlayer) LastDiagnostic() string {
	return m.diag.last
}

// Failure implements LineConsumer. Failures only count while nothing is playing.
func (m *MPlayer) Failure() exitcode.Code {
	if m.playing {
		return exitcode.None
	}
	return m.diag.failure
}

// FailureDetail implements LineConsumer.
func (m *MPlayer) FailureDetail() string {
	if m.playing {
		return ""
	}
	return m.diag.detail
}

// ParseLine implements LineConsumer.
func (m *MPlayer) ParseLine(raw string) bool {
	line := clean(raw)
	if strings.TrimSpace(line) == "" {
		return false
	}

	if section, ok := mplayerSections[strings.TrimSpace(line)]; ok {
		m.section = section
		return true
	}
	if m.diag.observe(line) {
		return true
	}
	if m.section != NoSection && m.parseRow(line) {
		return true
	}
	if m.parseIdentify(line) {
		return true
	}

	switch {
	case mplayerStatus.MatchString(line):
		pos := atof(mplayerStatus.FindStringSubmatch(line)[1])
		m.emit(Status{Position: pos})
		return true
	case mplayerPause.MatchString(line):
		m.emit(Paused{})
		return true
	case mplayerStart.MatchString(line):
		m.playing = true
		m.emit(Playing{})
		return true
	}

	if m.diag.observeGeneric(line) {
		return true
	}

	log.Tracef("mplayer: skipped %q", line)
	return false
}

func (m *MPlayer) parseRow(line string) bool {
	// "Available demuxers:" and similar headers
	if strings.HasSuffix(line, ":") {
		return false
	}

	section := m.section
	switch section {
	case VideoOutputs, AudioOutputs:
		return firstMatch(line, []pattern{
			{mplayerDriverTab, func(g map[string]string) { m.emitDriver(section, g) }},
			{mplayerDriverCols, func(g map[string]string) { m.emitDriver(section, g) }},
		})
	case Demuxers:
		return firstMatch(line, []pattern{
			{mplayerDemuxerFull, m.emitDemuxer},
			{mplayerDemuxerSimple, m.emitDemuxer},
			{mplayerDemuxerBare, m.emitDemuxer},
		})
	case VideoCodecs, AudioCodecs:
		return firstMatch(line, []pattern{
			{mplayerCodecFull, func(g map[string]string) { m.emitCodec(section, g) }},
			{mplayerCodecSimple, func(g map[string]string) { m.emitCodec(section, g) }},
		})
	}
	return false
}

func (m *MPlayer) emitDriver(section Section, g map[string]string) {
	m.emit(Driver{Section: section, Name: g["name"], Description: strings.TrimSpace(g["desc"])})
}

func (m *MPlayer) emitDemuxer(g map[string]string) {
	id := -1
	if g["id"] != "" {
		id = atoi(g["id"])
	}
	m.emit(Demuxer{
		Name:        g["name"],
		ID:          id,
		Info:        g["info"],
		Description: strings.TrimSpace(g["desc"]),
	})
}

func (m *MPlayer) emitCodec(section Section, g map[string]string) {
	m.emit(Codec{
		Section:     section,
		Name:        g["name"],
		Driver:      g["driver"],
		Status:      g["status"],
		Description: strings.TrimSpace(g["desc"]),
	})
}

func (m *MPlayer) parseIdentify(line string) bool {
	if g := mplayerAnswer.FindStringSubmatch(line); g != nil {
		m.emit(Property{Key: g[1], Value: g[2], Answer: true})
		return true
	}

	g := mplayerID.FindStringSubmatch(line)
	if g == nil {
		return false
	}
	k, value := g[1], g[2]

	switch {
	case k == "PAUSED":
		m.emit(Paused{})
	case k == "EXIT":
		if value == "QUIT" && !m.playing && m.diag.failure == exitcode.None {
			m.diag.failure = exitcode.QuitNoPlay
		}
		m.emit(Property{Key: k, Value: value})
	case mplayerTrackID.MatchString(k):
		kind := mplayerTrackKinds[mplayerTrackID.FindStringSubmatch(k)[1]]
		m.updateTrack(kind, atoi(value), func(*Track) {})
	case mplayerTrackAttr.MatchString(k):
		sub := mplayerTrackAttr.FindStringSubmatch(k)
		m.updateTrack(mplayerTrackKinds[sub[1]], atoi(sub[2]), func(t *Track) {
			if sub[3] == "LANG" {
				t.Lang = value
			} else {
				t.Name = value
			}
		})
	case mplayerChapter.MatchString(k):
		sub := mplayerChapter.FindStringSubmatch(k)
		id := atoi(sub[1])
		c, ok := m.chapters[id]
		if !ok {
			c = &Chapter{ID: id}
			m.chapters[id] = c
		}
		if sub[2] == "START" {
			c.Start = atof(value) / 1000
		} else {
			c.Name = value
		}
		m.emit(*c)
	case mplayerTitle.MatchString(k):
		m.emit(Title{ID: atoi(mplayerTitle.FindStringSubmatch(k)[1]), Length: atof(value)})
	default:
		m.emit(Property{Key: k, Value: value})
	}
	return true
}

func (m *MPlayer) updateTrack(kind TrackKind, id int, apply func(*Track)) {
	if id < 0 {
		return
	}
	k := trackKey{kind: kind, id: id}
	t, ok := m.tracks[k]
	if !ok {
		t = &Track{Kind: kind, ID: id}
		m.tracks[k] = t
	}
	apply(t)
	m.emit(*t)
}
