package backend

import "github.com/mpfront/mpfront/exitcode"

// Event is a typed notification produced from backend output or process state.
type Event interface {
	event()
}

// Section identifies which capability listing a row belongs to.
type Section int

const (
	NoSection Section = iota
	VideoOutputs
	AudioOutputs
	Demuxers
	VideoCodecs
	AudioCodecs
)

func (s Section) String() string {
	switch s {
	case VideoOutputs:
		return "video outputs"
	case AudioOutputs:
		return "audio outputs"
	case Demuxers:
		return "demuxers"
	case VideoCodecs:
		return "video codecs"
	case AudioCodecs:
		return "audio codecs"
	default:
		return "none"
	}
}

// Driver is a video or audio output driver row.
type Driver struct {
	Section     Section
	Name        string
	Description string
}

// Demuxer is a demuxer row. ID is -1 for rows without one.
type Demuxer struct {
	Name        string
	ID          int
	Info        string
	Description string
}

// Codec is a video or audio codec row.
type Codec struct {
	Section     Section
	Name        string
	Driver      string
	Status      string
	Description string
}

// Property is a key/value answer. Answer is set for replies to
// get_property style queries (ANS_ lines).
type Property struct {
	Key    string
	Value  string
	Answer bool
}

// TrackKind separates audio, subtitle and video tracks.
type TrackKind int

const (
	AudioTrack TrackKind = iota
	SubtitleTrack
	VideoTrack
)

func (k TrackKind) String() string {
	switch k {
	case AudioTrack:
		return "audio"
	case SubtitleTrack:
		return "subtitle"
	default:
		return "video"
	}
}

// Track is the accumulated metadata for one stream.
type Track struct {
	Kind TrackKind
	ID   int
	Lang string
	Name string
}

// Chapter is a chapter start marker, in seconds.
type Chapter struct {
	ID    int
	Start float64
	Name  string
}

// Title is a disc title and its length in seconds.
type Title struct {
	ID     int
	Length float64
}

// Status is a periodic playback position report.
type Status struct {
	Position float64
	Paused   bool
}

// Paused acknowledges that playback is paused.
type Paused struct{}

// Playing reports that playback has started.
type Playing struct{}

// Started reports a successful process spawn.
type Started struct {
	PID int
}

// Finished reports a clean process exit.
type Finished struct{}

// Failed reports a classified start failure or abnormal exit.
type Failed struct {
	Code    exitcode.Code
	Message string
}

func (Driver) event()   {}
func (Demuxer) event()  {}
func (Codec) event()    {}
func (Property) event() {}
func (Track) event()    {}
func (Chapter) event()  {}
func (Title) event()    {}
func (Status) event()   {}
func (Paused) event()   {}
func (Playing) event()  {}
func (Started) event()  {}
func (Finished) event() {}
func (Failed) event()   {}
