// Package api handles incoming HTTP requests, request validation, and
// response formatting. It adapts external clients to the application
// services, including the quota-gated endpoints whose denials answer with
// the 429 quota envelope.
package api
