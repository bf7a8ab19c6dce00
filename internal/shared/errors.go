package shared

import "errors"

var (
	ErrNotImplemented = errors.New("not implemented")

	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Connection errors
	ErrNotConnected    = errors.New("not connected")
	ErrConnectionLost  = errors.New("connection lost")
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
	ErrRemote          = errors.New("request failed")

	// Protocol errors
	ErrUnknownMessage = errors.New("unknown message type")
	ErrMalformed      = errors.New("malformed message")

	// Collection errors
	ErrNoCollection      = errors.New("no collection selected")
	ErrInvalidCollection = errors.New("not a valid collection")
	ErrCollectionExists  = errors.New("collection file exists")
	ErrTrackNotFound     = errors.New("track not found")
	ErrUnknownColumn     = errors.New("unknown column")

	// API and service errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrNoResults          = errors.New("no results")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)
