// Package client keeps a duplex WebSocket connection to a stereo server.
//
// A [Client] multiplexes fire-and-forget messages ([Client.Send]) with
// correlated request/reply pairs ([Client.Call], [Client.Request]). Each
// correlated request gets the next integer id; its callback runs exactly once,
// with the reply, after the timeout, or when the connection is lost. Messages
// that do not answer a pending call are passed to the [Handler].
//
// [Client.Run] reconnects after a fixed interval whenever the connection closes
// and keeps it alive with heartbeats.
package client
