// Package ws provides the live session stream over WebSocket.
//
// A client connects to /v1/sessions/:id/stream and is bound to that
// session. Every event the session dispatches, from any source, is pushed
// to the client, blocked events included.
//
// Message Types (Client → Server):
//   - render: validate and render "payload" (a tree, or a JSON string
//     holding one) with optional "mode"
//   - template: render the catalog template named by "template"
//   - tap: tap the element for "nodeId" in the last render
//   - change: send "value" to the element for "nodeId"
//   - action: dispatch action "id" with "params"
//   - navigate: dispatch "route" with "params"
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: connected, with the session's allow-list
//   - rendered: elements of the last render
//   - rejected: payload failed validation, with the reason code
//   - event: a dispatched action or navigation event
//   - ack: whether a tap, change or dispatch took effect
//   - pong, error
//
// Example Usage:
//
//	handler := ws.NewHandler(ws.Deps{Sessions: mgr, Production: reg, Catalog: cat})
//	router.GET("/v1/sessions/:id/stream", handler.HandleConnection)
package ws
