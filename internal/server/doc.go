// Package server provides HTTP routing, middleware and the WebSocket hub of the stereo backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [ChiRouter] implements it on top of chi; [Middleware] is applied in the order it is added.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// The [Hub] serves /ws; the static file handler of the web package serves everything else.
//
// # Hub
//
// Every connection gets a session with its own inbound and outbound queues.
// Inbound messages are handled in arrival order; long-running work (searches, track lookups,
// playlist links) runs in the background so the queue keeps moving. A new search cancels the
// previous one, and a cancelled search never reports completion.
//
// Outbound messages are written as JSON arrays of up to HubConfig.BatchSize messages. A frame
// is written when it is full or HubConfig.BatchDelay after its first message was queued.
//
// Collections are opened once and shared. Changes made through one session are pushed to every
// session that has the same collection selected.
package server
