// Package net implements the wire protocol spoken between game clients and the
// game server.
//
// This includes a message (a buffer with helpers for the primitive field
// encodings), the closed set of packets, their stream and datagram codecs, and
// an endpoint pairing the reliable and unreliable sockets of one peer.
//
// Every packet starts with a header of two network order uint32 words: the
// payload size and the type code. The payload is the sender's username as a
// uint32 length-prefixed string, followed by the type-specific fields.
package net
