// Package http exposes the campus-safety core over a JSON HTTP API.
//
// Routing is chi, responses go through go-chi/render, request bodies are
// checked with go-playground/validator, and live status is streamed to
// administrator dashboards over gorilla/websocket. The transport maps the
// domain error taxonomy onto status codes and never leaks which part of a
// credential was wrong.
package http
