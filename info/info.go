// Package info collects the drivers, demuxers and codecs a backend supports.
package info

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mpfront/mpfront/backend"
	"github.com/mpfront/mpfront/log"
	"github.com/mpfront/mpfront/player"
)

// Report is the parsed capability listing of one backend binary.
type Report struct {
	Backend      string            `json:"backend"`
	VideoOutputs []backend.Driver  `json:"video_outputs"`
	AudioOutputs []backend.Driver  `json:"audio_outputs"`
	Demuxers     []backend.Demuxer `json:"demuxers"`
	VideoCodecs  []backend.Codec   `json:"video_codecs"`
	AudioCodecs  []backend.Codec   `json:"audio_codecs"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// Add files one event into the report. Other events are ignored.
func (r *Report) Add(e backend.Event) {
	switch e := e.(type) {
	case backend.Driver:
		if e.Section == backend.AudioOutputs {
			r.AudioOutputs = append(r.AudioOutputs, e)
		} else {
			r.VideoOutputs = append(r.VideoOutputs, e)
		}
	case backend.Demuxer:
		r.Demuxers = append(r.Demuxers, e)
	case backend.Codec:
		if e.Section == backend.AudioCodecs {
			r.AudioCodecs = append(r.AudioCodecs, e)
		} else {
			r.VideoCodecs = append(r.VideoCodecs, e)
		}
	case backend.Property:
		if r.Properties == nil {
			r.Properties = make(map[string]string)
		}
		r.Properties[e.Key] = e.Value
	}
}

// Len is the number of rows in all sections.
func (r *Report) Len() int {
	return len(r.VideoOutputs) + len(r.AudioOutputs) + len(r.Demuxers) + len(r.VideoCodecs) + len(r.AudioCodecs)
}

// Filter returns a copy holding only rows whose name fuzzy-matches query.
// Properties are not filtered.
func (r *Report) Filter(query string) *Report {
	if query == "" {
		return r
	}

	match := func(name string) bool {
		return fuzzy.MatchFold(query, name)
	}

	filtered := &Report{Backend: r.Backend, Properties: r.Properties}
	for _, d := range r.VideoOutputs {
		if match(d.Name) {
			filtered.VideoOutputs = append(filtered.VideoOutputs, d)
		}
	}
	for _, d := range r.AudioOutputs {
		if match(d.Name) {
			filtered.AudioOutputs = append(filtered.AudioOutputs, d)
		}
	}
	for _, d := range r.Demuxers {
		if match(d.Name) {
			filtered.Demuxers = append(filtered.Demuxers, d)
		}
	}
	for _, c := range r.VideoCodecs {
		if match(c.Name) {
			filtered.VideoCodecs = append(filtered.VideoCodecs, c)
		}
	}
	for _, c := range r.AudioCodecs {
		if match(c.Name) {
			filtered.AudioCodecs = append(filtered.AudioCodecs, c)
		}
	}

	return filtered
}

// PropertyKeys returns the property names in sorted order.
func (r *Report) PropertyKeys() []string {
	keys := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Source selects the binary to query.
type Source struct {
	Backend *backend.Backend
	// Path defaults to Backend.Binary.
	Path string
	// Args defaults to Backend.InfoArgs.
	Args []string
}

func (s Source) path() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Backend.Binary
}

func (s Source) key() string {
	return s.Backend.Name + "@" + s.path()
}

// Collect runs the backend's capability listing and parses its output.
// A non-zero exit is tolerated as long as something was listed.
func Collect(ctx context.Context, src Source) (*Report, error) {
	if src.Backend == nil {
		return nil, fmt.Errorf("%w: none given", backend.ErrUnknownBackend)
	}

	args := src.Args
	if args == nil {
		args = src.Backend.InfoArgs
	}

	p, err := player.New(player.Options{
		Backend:     src.Backend,
		Path:        src.path(),
		Args:        args,
		EventBuffer: 4096,
		FlushOnExit: true,
	})
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		return nil, err
	}

	report := &Report{Backend: src.Backend.Name}
	done := p.Done()
	for collecting := true; collecting; {
		select {
		case e := <-p.Events():
			report.Add(e)
		case <-done:
			collecting = false
		}
	}
	for drained := false; !drained; {
		select {
		case e := <-p.Events():
			report.Add(e)
		default:
			drained = true
		}
	}

	result := p.Result()
	if result.Failed() {
		if report.Len() == 0 {
			return nil, result.Err
		}
		log.Debugf("info: %s exited with %s, keeping %d rows", src.path(), result.Code, report.Len())
	}
	if report.Len() == 0 {
		return nil, errors.New("backend listed no capabilities")
	}

	return report, nil
}
