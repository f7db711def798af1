// Package httpwire implements the slice of RFC 7230 this engine needs to
// read and write a WebSocket handshake: start lines (request and status)
// and headers, including obsolete line folding and multi-valued headers.
//
// It is not a general HTTP/1.1 engine — no body framing, no chunked
// transfer encoding, no routing. Those concerns belong to a full HTTP
// stack, which is out of scope for a WebSocket core (see spec).
package httpwire

import "strings"

// Header is an ordered, multi-valued HTTP header collection. Header
// names are matched case-insensitively (RFC 7230 §3.2); each pair keeps
// the name casing it was added with, and that is what VisitAll reports
// and the Write*Head functions emit.
type Header struct {
	keys   []string // lowercased lookup key, parallel to values
	names  []string // original casing, parallel to values
	values []string
}

// Add appends a (name, value) pair, preserving insertion order. Multiple
// calls with the same name (case-insensitively) accumulate values rather
// than overwriting, per RFC 7230's header-list semantics.
func (h *Header) Add(name, value string) {
	h.keys = append(h.keys, strings.ToLower(name))
	h.names = append(h.names, name)
	h.values = append(h.values, value)
}

// Set replaces all existing values for name with a single value.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Del removes all values for name (case-insensitive).
func (h *Header) Del(name string) {
	key := strings.ToLower(name)
	out := h.keys[:0]
	outNames := h.names[:0]
	outValues := h.values[:0]
	for i, k := range h.keys {
		if k == key {
			continue
		}
		out = append(out, k)
		outNames = append(outNames, h.names[i])
		outValues = append(outValues, h.values[i])
	}
	h.keys, h.names, h.values = out, outNames, outValues
}

// Get returns the first value for name (case-insensitive), or "" if
// absent.
func (h *Header) Get(name string) string {
	key := strings.ToLower(name)
	for i, k := range h.keys {
		if k == key {
			return h.values[i]
		}
	}
	return ""
}

// Has reports whether name is present (case-insensitive).
func (h *Header) Has(name string) bool {
	key := strings.ToLower(name)
	for _, k := range h.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Values returns every value for name (case-insensitive) in insertion
// order. The returned slice is a fresh copy.
func (h *Header) Values(name string) []string {
	key := strings.ToLower(name)
	var out []string
	for i, k := range h.keys {
		if k == key {
			out = append(out, h.values[i])
		}
	}
	return out
}

// Combined returns every value for name joined with ", ", matching the
// combined representation RFC 7230 §3.2.2 says is equivalent to the
// comma-separated header-field-value.
func (h *Header) Combined(name string) string {
	return strings.Join(h.Values(name), ", ")
}

// HasToken reports whether name's combined value contains token as one
// of its comma-separated elements, case-insensitively — the shape
// needed for `Connection: keep-alive, Upgrade` and similar.
func (h *Header) HasToken(name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// Len returns the number of (name, value) pairs, counting repeated
// names separately.
func (h *Header) Len() int {
	return len(h.values)
}

// VisitAll calls visitor for each (name, value) pair in insertion order.
func (h *Header) VisitAll(visitor func(name, value string)) {
	for i := range h.values {
		visitor(h.names[i], h.values[i])
	}
}

// Reset clears the header collection for reuse.
func (h *Header) Reset() {
	h.keys = h.keys[:0]
	h.names = h.names[:0]
	h.values = h.values[:0]
}
