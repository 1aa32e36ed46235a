// Package api exposes the HTTP surface of the learning service: session and
// plan retrieval, grade submission, postponement, unit completion, and unit
// management. Handlers validate and decode requests, call the corresponding
// application service, and translate service errors to HTTP status codes,
// keeping transport concerns out of the services themselves.
package api
