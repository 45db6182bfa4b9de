// Package live consumes the server push channel that reports generation progress.
//
// The wire format is text/event-stream, parsed by [Reader]. Each frame's data is
// decoded by [Decode] into one of four [Event] types. Messages missing required
// fields are logged and dropped; they never reach the consumer.
//
// [Apply] merges an event into a content collection by id without modifying its
// input, and ignores ids the client does not already hold. [State] wraps a
// collection for concurrent use.
//
// [Open] returns a [Channel] that reconnects on transient failures, paced by a
// [golang.org/x/time/rate.Limiter] whose interval follows the server's retry hint. [Subscriber]
// keeps a single channel per slot when the filter key changes.
package live
