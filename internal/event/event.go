// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Package event defines the closed set of events a conversation turn emits.
//
// Every turn produces an ordered, finite sequence that ends with exactly one
// terminal event: Done on success or Error on failure.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Type is the wire tag of an event.
type Type string

const (
	TypeContent        Type = "content"
	TypeWeather        Type = "weather"
	TypeCareerProgress Type = "career_progress"
	TypeError          Type = "error"
	TypeDone           Type = "done"
)

// Event is implemented only by the types in this package.
type Event interface {
	Type() Type
	isEvent()
}

// Content is a fragment of streamed assistant text. Concatenating all
// fragments of a turn reconstructs the assistant reply.
type Content struct {
	Text string `json:"text"`
}

// Weather carries a resolved snapshot and its forecast.
type Weather struct {
	Snapshot weather.Snapshot `json:"snapshot"`
}

// CareerProgress reports a career interview stage transition.
type CareerProgress struct {
	StageIndex int     `json:"stage_index"`
	Progress   float64 `json:"progress"`
	// Prompt is the question for StageIndex; empty after a reset.
	Prompt string `json:"prompt,omitempty"`
}

// Error is terminal: nothing follows it.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Done is the terminal marker of a successful turn.
type Done struct{}

func (Content) Type() Type        { return TypeContent }
func (Weather) Type() Type        { return TypeWeather }
func (CareerProgress) Type() Type { return TypeCareerProgress }
func (Error) Type() Type          { return TypeError }
func (Done) Type() Type           { return TypeDone }

func (Content) isEvent()        {}
func (Weather) isEvent()        {}
func (CareerProgress) isEvent() {}
func (Error) isEvent()          {}
func (Done) isEvent()           {}

// IsTerminal reports whether e ends a turn.
func IsTerminal(e Event) bool {
	switch e.(type) {
	case Error, Done:
		return true
	default:
		return false
	}
}

// ErrorKind classifies Error events.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindUpstream   ErrorKind = "upstream"
	KindBusy       ErrorKind = "busy"
	KindCancelled  ErrorKind = "cancelled"
	KindInternal   ErrorKind = "internal"
)

// KindOf maps a coded error onto the event error taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case xzerr.IsBusy(err):
		return KindBusy
	case xzerr.IsNotFound(err):
		return KindNotFound
	case xzerr.IsInvalidInput(err):
		return KindValidation
	case xzerr.IsCancelled(err):
		return KindCancelled
	case xzerr.IsUpstreamFailure(err):
		return KindUpstream
	default:
		return KindInternal
	}
}

// FromError builds the terminal Error event for err.
func FromError(err error) Error {
	return Error{Kind: KindOf(err), Message: userMessage(err)}
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindBusy:
		return "上一条消息还在处理中，请稍候再试。"
	case KindUpstream:
		return fmt.Sprintf("服务暂时不可用，请稍后再试。(%s)", err.Error())
	default:
		return err.Error()
	}
}

type envelope struct {
	Type Type `json:"type"`
	Data any  `json:"data,omitempty"`
}

// Encode renders e as `{"type": ..., "data": {...}}`.
func Encode(e Event) ([]byte, error) {
	env := envelope{Type: e.Type()}
	switch v := e.(type) {
	case Content, Weather, CareerProgress, Error:
		env.Data = v
	case Done:
	default:
		return nil, fmt.Errorf("event: unknown variant %T", e)
	}
	return json.Marshal(env)
}

// Decode parses the output of Encode.
func Decode(raw []byte) (Event, error) {
	var env struct {
		Type Type            `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, xzerr.Wrapf(err, xzerr.CodeServerRequestInvalid, "decoding event")
	}

	var (
		e   Event
		err error
	)
	switch env.Type {
	case TypeContent:
		e, err = decodeInto[Content](env.Data)
	case TypeWeather:
		e, err = decodeInto[Weather](env.Data)
	case TypeCareerProgress:
		e, err = decodeInto[CareerProgress](env.Data)
	case TypeError:
		e, err = decodeInto[Error](env.Data)
	case TypeDone:
		e = Done{}
	default:
		return nil, xzerr.Errorf(xzerr.CodeServerRequestInvalid, "unknown event type %q", env.Type)
	}
	return e, err
}

func decodeInto[T Event](data json.RawMessage) (Event, error) {
	var v T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, xzerr.Wrapf(err, xzerr.CodeServerRequestInvalid, "decoding %T event", v)
		}
	}
	return v, nil
}
