// Package api exposes the ask pipeline and its stores over HTTP.
//
// Surface:
//
//	POST /api/v1/chat                              start a conversation
//	POST /api/v1/chat/{id}                         continue a conversation
//	GET  /api/v1/conversations                     list conversations
//	GET  /api/v1/conversations/{id}/messages       full transcript
//	POST /api/v1/documents                         index submitted text
//	GET  /health                                   liveness probe
//	GET  /ready                                    db ping + knowledge readiness
//
// Chat endpoints answer in two modes, chosen by the "stream" field of the
// request body: a single JSON object, or an SSE stream of "chunk" events
// closed by "done" (or "error"). Both modes carry the conversation id in
// the X-Conversation-Id response header; for SSE the user turn is
// persisted before streaming starts so the header is final before the
// first byte goes out.
//
// Every JSON error uses the envelope {"error": ..., "code": ...}. The SSE
// variant sends the same payload as an "error" event, since by then the
// status line is already on the wire.
//
// Middleware, outermost first: panic recovery, request id (X-Request-ID,
// generated when absent), request logging, CORS for configured origins,
// and a per-IP token bucket rate limit. Health probes bypass the stack.
package api
