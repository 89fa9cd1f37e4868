// Package websocket is a lightweight client implementation of the WebSocket
// protocol (RFC 6455), over raw TCP or TLS. It performs the opening HTTP
// Upgrade handshake, frames and unframes messages, reassembles fragmented
// messages, interleaves control frames (ping/pong/close) with data frames,
// and exposes a minimal send/receive surface to the embedding application.
//
// A Conn is single-connection and not safe for concurrent use: the
// application must not call Send and BasicRead from different goroutines at
// the same time. Two read modes are supported, selected with WithNonBlocking:
// the default blocking mode, where BasicRead blocks the calling goroutine
// until a full message (or control frame) has been read or the connection
// ends, and a non-blocking mode, where BasicRead returns immediately with no
// error and no state change when no data is available yet.
//
// Out of scope: server-side behavior, permessage-deflate and other
// extensions, subprotocol negotiation, automatic reconnection, and any
// policy for batching messages above the frame layer.
package websocket
