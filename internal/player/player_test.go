package player

import (
	"errors"
	"testing"

	"github.com/desertthunder/stereo/internal/protocol"
	"github.com/desertthunder/stereo/internal/shared"
)

type recordingSender struct {
	sent []protocol.Message
	err  error
}

func (r *recordingSender) Send(m protocol.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func TestPlay(t *testing.T) {
	t.Run("OpensAndReports", func(t *testing.T) {
		var opened []string
		remote := &recordingSender{}
		p := New(remote, WithOpener(func(url string) error {
			opened = append(opened, url)
			return nil
		}))

		if err := p.Play("abc123"); err != nil {
			t.Fatalf("Play failed: %v", err)
		}
		if len(opened) != 1 || opened[0] != "https://www.youtube.com/watch?v=abc123" {
			t.Errorf("unexpected opened urls %v", opened)
		}
		if len(remote.sent) != 1 {
			t.Fatalf("expected one message, got %d", len(remote.sent))
		}
		inc, ok := remote.sent[0].(*protocol.IncPlayCount)
		if !ok || inc.YTID != "abc123" {
			t.Errorf("expected inc-play-count for abc123, got %#v", remote.sent[0])
		}
	})

	t.Run("EmptyID", func(t *testing.T) {
		p := New(nil, WithOpener(func(string) error { return nil }))
		if err := p.Play(""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("OpenFails", func(t *testing.T) {
		remote := &recordingSender{}
		boom := errors.New("no browser")
		p := New(remote, WithOpener(func(string) error { return boom }))

		if err := p.Play("abc"); !errors.Is(err, boom) {
			t.Errorf("expected open error, got %v", err)
		}
		if len(remote.sent) != 0 {
			t.Errorf("expected no play to be reported")
		}
	})

	t.Run("NotConnected", func(t *testing.T) {
		remote := &recordingSender{err: shared.ErrNotConnected}
		p := New(remote, WithOpener(func(string) error { return nil }))

		if err := p.Play("abc"); !errors.Is(err, shared.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})
}
