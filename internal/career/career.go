// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Package career implements the six-stage career planning interview.
//
// The engine is a pure state transformer: every operation takes the previous
// State and returns the next one. Sessions own the State between calls.
package career

import (
	"encoding/json"
	"maps"
	"strings"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// StageCount is the number of interview questions.
const StageCount = 6

// Status is the lifecycle position of an interview.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseStatus parses a case-insensitive status name. Empty means NOT_STARTED.
func ParseStatus(raw string) (Status, error) {
	if strings.TrimSpace(raw) == "" {
		return StatusNotStarted, nil
	}
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", xzerr.Errorf(xzerr.CodeCareerStateInvalid, "invalid interview status: %q", raw)
	}
	return s, nil
}

// State is the interview state carried by a session. The zero value is a
// not-yet-started interview.
type State struct {
	Status     Status         `json:"status"`
	StageIndex int            `json:"stage_index"`
	Answers    map[int]string `json:"answers"`
}

// Active reports whether an interview is waiting for an answer.
func (s State) Active() bool {
	return s.Status == StatusInProgress
}

// Progress is the fraction of stages answered.
func (s State) Progress() float64 {
	return float64(s.StageIndex) / StageCount
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Answers = maps.Clone(s.Answers)
	return s
}

// Validate checks the structural invariants a persisted State must hold:
// IN_PROGRESS holds exactly the answers below StageIndex, COMPLETED holds all
// of them, and the other statuses hold none.
func (s State) Validate() error {
	status := s.Status
	if status == "" {
		status = StatusNotStarted
	}
	if !status.Valid() {
		return xzerr.Errorf(xzerr.CodeCareerStateInvalid, "invalid interview status: %q", s.Status)
	}

	want := 0
	switch status {
	case StatusInProgress:
		if s.StageIndex < 0 || s.StageIndex >= StageCount {
			return xzerr.Errorf(xzerr.CodeCareerStateInvalid, "stage index %d out of range for %s", s.StageIndex, status)
		}
		want = s.StageIndex
	case StatusCompleted:
		if s.StageIndex != StageCount {
			return xzerr.Errorf(xzerr.CodeCareerStateInvalid, "completed interview must be at stage %d, got %d", StageCount, s.StageIndex)
		}
		want = StageCount
	default:
		if s.StageIndex != 0 {
			return xzerr.Errorf(xzerr.CodeCareerStateInvalid, "%s interview must be at stage 0, got %d", status, s.StageIndex)
		}
	}

	if len(s.Answers) != want {
		return xzerr.Errorf(xzerr.CodeCareerStateInvalid, "%s interview at stage %d holds %d answers", status, s.StageIndex, len(s.Answers))
	}
	for i := range want {
		if strings.TrimSpace(s.Answers[i]) == "" {
			return xzerr.New(xzerr.CodeCareerStateInvalid, "missing answer", xzerr.FieldStage(i))
		}
	}
	return nil
}

// DecodeState parses and validates a persisted State. Empty input yields the
// zero State.
func DecodeState(raw []byte) (State, error) {
	if len(raw) == 0 {
		return State{Status: StatusNotStarted}, nil
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, xzerr.Wrapf(err, xzerr.CodeCareerStateInvalid, "decoding interview state")
	}
	if s.Status == "" {
		s.Status = StatusNotStarted
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// Answered returns the answers in stage order.
func (s State) Answered() []string {
	out := make([]string, 0, len(s.Answers))
	for i := range StageCount {
		if a, ok := s.Answers[i]; ok {
			out = append(out, a)
		}
	}
	return out
}

func freshState(status Status) State {
	return State{Status: status, StageIndex: 0, Answers: map[int]string{}}
}
