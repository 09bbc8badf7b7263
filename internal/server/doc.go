// Package server implements the HTTP and WebSocket transport of chatverse.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, event dispatch, routing, middleware and HTTP
// handlers. Presence and fan-out rules live in internal/presence; this
// package only moves events between sockets and those services.
package server
