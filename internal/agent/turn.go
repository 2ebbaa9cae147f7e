// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package agent

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/event"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// Turn is the lazy result of one Router.Handle call. Nothing runs until
// Events is ranged over; the session stays busy until the range ends or
// Close is called.
type Turn struct {
	route  Route
	ctx    context.Context
	cancel context.CancelFunc
	run    func(ctx context.Context, t *Turn, emit career.Yield)
	commit func(*Turn)

	closeOnce sync.Once
	release   func()

	mu       sync.Mutex
	consumed bool
	career   career.State
	reply    strings.Builder
	err      error
}

func newTurn(ctx context.Context, route Route, s career.State, release func(), run func(context.Context, *Turn, career.Yield)) *Turn {
	ctx, cancel := context.WithCancel(ctx)
	return &Turn{
		route:   route,
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		release: release,
		career:  s.Clone(),
	}
}

// failedTurn is a Turn whose only event is the error for err.
func failedTurn(s career.State, err error) *Turn {
	return &Turn{
		career: s.Clone(),
		err:    err,
		cancel: func() {},
	}
}

// Route reports which behavior the message was dispatched to. It is empty
// for a turn rejected before dispatch.
func (t *Turn) Route() Route { return t.route }

// Events returns the turn's event sequence. It can be ranged over once;
// breaking out early cancels any in-flight collaborator call. Later calls
// yield a single validation error.
func (t *Turn) Events() iter.Seq[event.Event] {
	return func(yield func(event.Event) bool) {
		t.mu.Lock()
		if t.consumed {
			t.mu.Unlock()
			yield(event.FromError(xzerr.New(xzerr.CodeAgentTurnConsumed, "turn already consumed")))
			return
		}
		t.consumed = true
		preset := t.err
		t.mu.Unlock()

		defer t.Close()
		if preset != nil {
			yield(event.FromError(preset))
			return
		}

		stopped := false
		emit := func(e event.Event) bool {
			if stopped {
				return false
			}
			if c, ok := e.(event.Content); ok {
				t.mu.Lock()
				t.reply.WriteString(c.Text)
				t.mu.Unlock()
			}
			if !yield(e) {
				stopped = true
				t.cancel()
			}
			return !stopped
		}
		t.run(t.ctx, t, emit)
		if t.commit != nil {
			t.commit(t)
		}
	}
}

// Close releases the session and cancels any in-flight work. It is safe to
// call more than once and without ranging over Events.
func (t *Turn) Close() {
	t.closeOnce.Do(func() {
		t.cancel()
		if t.release != nil {
			t.release()
		}
	})
}

// Career returns the interview state as of the last committed transition.
func (t *Turn) Career() career.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.career.Clone()
}

// Reply returns the assistant text produced so far.
func (t *Turn) Reply() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reply.String()
}

// Err returns the error that ended the turn, if any.
func (t *Turn) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Turn) setCareer(s career.State) {
	t.mu.Lock()
	t.career = s.Clone()
	t.mu.Unlock()
}

func (t *Turn) setReply(text string) {
	t.mu.Lock()
	t.reply.Reset()
	t.reply.WriteString(text)
	t.mu.Unlock()
}

func (t *Turn) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}
