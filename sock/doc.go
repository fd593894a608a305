// Package sock implements the small, platform-independent socket utilities the
// client and server sessions are built on.
//
// This includes closing sockets, readiness polling over several sockets with a
// bounded wait, address presentation, errno retrieval, reusable listeners and
// host/network byte order conversion for floats, vectors and matrices.
package sock
