// Package dict resolves a word to a canonical dictionary entry, first from
// a local ECDICT store and then from the Merriam-Webster Learner's API.
package dict

import (
	"encoding/json"
	"strings"
)

// Pronunciation is one spoken form of a headword.
type Pronunciation struct {
	IPA      *string `json:"ipa,omitempty"`
	AudioURL *string `json:"audioUrl,omitempty"`
}

// Entry is the canonical shape every tier is normalized into.
type Entry struct {
	Headword       string          `json:"hw"`
	Definitions    []string        `json:"def"`
	Translations   []string        `json:"trans"`
	Pronunciations []Pronunciation `json:"prs"`
}

// Pretty renders e as two-space indented JSON. Nil lists render as [].
func (e Entry) Pretty() (string, error) {
	if e.Definitions == nil {
		e.Definitions = []string{}
	}
	if e.Translations == nil {
		e.Translations = []string{}
	}
	if e.Pronunciations == nil {
		e.Pronunciations = []Pronunciation{}
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Status is the kind of a resolution outcome.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Outcome is the result of one resolution. Entry is set only when Found;
// Err is set when NotFound or Failed.
type Outcome struct {
	Status Status
	Entry  Entry
	Err    error
}

func found(e Entry) Outcome      { return Outcome{Status: StatusFound, Entry: e} }
func notFound(err error) Outcome { return Outcome{Status: StatusNotFound, Err: err} }
func failed(err error) Outcome   { return Outcome{Status: StatusFailed, Err: err} }

func strPtr(s string) *string { return &s }

// splitLines breaks a stored text block into its non-empty lines.
func splitLines(s *string) []string {
	if s == nil {
		return []string{}
	}
	out := []string{}
	for _, line := range strings.Split(*s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
