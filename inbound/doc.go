// Package inbound normalizes webhook deliveries into pipeline calls. It
// owns header extraction, payload decoding, and the HTTP reply contract:
// 201 with the echoed payload for a first delivery, 200 empty for a
// replay, 400 for malformed input.
package inbound
