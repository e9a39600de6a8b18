// Package prompt connects the background writer to whoever answers its
// save-target questions.
package prompt

import (
	"context"
	"errors"
)

type Kind int

const (
	// KindOverwrite asks: write into the original (yes) or into a copy (no)
	KindOverwrite Kind = iota
	// KindCopyPath asks for the destination of the copy
	KindCopyPath
)

func (k Kind) String() string {
	switch k {
	case KindOverwrite:
		return "overwrite"
	case KindCopyPath:
		return "copy-path"
	}
	return "unknown"
}

// Answer resolves a Request. Path is only read for KindCopyPath; an empty
// Path cancels the run.
type Answer struct {
	Yes  bool
	Path string
}

// Request is one decision the worker is blocked on
type Request struct {
	Kind     Kind
	Original string
	reply    chan Answer
}

// Resolve hands the answer back to the waiting worker. It never blocks;
// extra calls are dropped.
func (r Request) Resolve(a Answer) {
	select {
	case r.reply <- a:
	default:
	}
}

var ErrClosed = errors.New("prompt handoff closed")

// Handoff is a synchronous request/response channel between the worker
// goroutine and the interactive surface.
type Handoff struct {
	requests chan Request
	done     chan struct{}
}

func NewHandoff() *Handoff {
	return &Handoff{
		requests: make(chan Request),
		done:     make(chan struct{}),
	}
}

// Requests is read by the interactive surface
func (h *Handoff) Requests() <-chan Request {
	return h.requests
}

// Close releases any worker still waiting for an answer
func (h *Handoff) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Handoff) ask(ctx context.Context, kind Kind, original string) (Answer, error) {
	req := Request{Kind: kind, Original: original, reply: make(chan Answer, 1)}

	select {
	case h.requests <- req:
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	case <-h.done:
		return Answer{}, ErrClosed
	}

	select {
	case a := <-req.reply:
		return a, nil
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	case <-h.done:
		return Answer{}, ErrClosed
	}
}

func (h *Handoff) ConfirmOverwrite(ctx context.Context, original string) (bool, error) {
	a, err := h.ask(ctx, KindOverwrite, original)
	return a.Yes, err
}

func (h *Handoff) ChooseCopyPath(ctx context.Context, original string) (string, error) {
	a, err := h.ask(ctx, KindCopyPath, original)
	return a.Path, err
}
