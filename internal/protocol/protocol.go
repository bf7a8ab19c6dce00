// Package protocol defines the JSON messages exchanged over the stereo WebSocket.
//
// Every message is an object with a "type" discriminator. The server sends
// batches as JSON arrays; clients send single objects. [Decode] accepts both.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/stereo/internal/shared"
)

// Message is any value of the wire vocabulary.
type Message interface {
	Type() string
}

// Correlated is a message carrying a request id.
//
// Replies echo the id of the request they answer; an id of zero means the
// message is not part of a request/reply pair.
type Correlated interface {
	Message
	RequestID() int
	SetRequestID(id int)
}

// Correlation is embedded by correlated messages.
type Correlation struct {
	ID int `json:"id"`
}

func (c Correlation) RequestID() int       { return c.ID }
func (c *Correlation) SetRequestID(id int) { c.ID = id }

// ReplyID returns the request id a message answers, if any.
func ReplyID(m Message) (int, bool) {
	c, ok := m.(Correlated)
	if !ok || c.RequestID() == 0 {
		return 0, false
	}
	return c.RequestID(), true
}

// Encode marshals m with its type field first.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", shared.ErrMalformed)
	}

	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.Type(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("%w: %s does not encode to an object", shared.ErrMalformed, m.Type())
	}

	typ, _ := json.Marshal(m.Type())

	var buf bytes.Buffer
	buf.Grow(len(body) + len(typ) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	if len(body) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

// EncodeBatch marshals msgs as one JSON array.
func EncodeBatch(msgs []Message) ([]byte, error) {
	items := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		data, err := Encode(m)
		if err != nil {
			return nil, err
		}
		items = append(items, data)
	}
	return json.Marshal(items)
}

// DecodeOne decodes a single message object.
func DecodeOne(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformed, err)
	}

	newMsg, ok := registry[head.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownMessage, head.Type)
	}

	m := newMsg()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrMalformed, head.Type, err)
	}
	return m, nil
}

// Decode decodes a message object or an array of them.
//
// Messages that fail to decode are skipped; their errors are joined and returned
// alongside the messages that succeeded.
func Decode(data []byte) ([]Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", shared.ErrMalformed)
	}

	if data[0] != '[' {
		m, err := DecodeOne(data)
		if err != nil {
			return nil, err
		}
		return []Message{m}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformed, err)
	}

	msgs := make([]Message, 0, len(items))
	var errs []error
	for _, item := range items {
		m, err := DecodeOne(item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, errors.Join(errs...)
}

// Known reports whether typ is part of the vocabulary.
func Known(typ string) bool {
	_, ok := registry[typ]
	return ok
}

// NewError builds the reply for a failed correlated request.
func NewError(id int, err error) *Error {
	return &Error{Correlation: Correlation{ID: id}, Message: err.Error()}
}
