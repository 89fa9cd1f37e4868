package websocket

import (
	"fmt"
	"net"
	"strings"
)

// parsedURL holds the pieces of a "ws[s]://host[:port]" address relevant to
// dialing and the opening handshake's Host header. The path is not part of
// this syntax: it is passed separately to Connect / InterfaceConnect, and
// defaults to "/" (see https://datatracker.ietf.org/doc/html/rfc6455#section-3).
type parsedURL struct {
	scheme string // "ws" or "wss"
	host   string
	port   string
}

func parseURL(raw string) (parsedURL, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return parsedURL{}, fmt.Errorf("websocket: %q is missing a ws:// or wss:// scheme", raw)
	}
	switch scheme {
	case "ws", "wss":
	default:
		return parsedURL{}, fmt.Errorf("websocket: unsupported scheme %q, want ws or wss", scheme)
	}
	if rest == "" {
		return parsedURL{}, fmt.Errorf("websocket: %q is missing a host", raw)
	}
	// A path here would belong to Connect's separate path argument, not the
	// URL; reject it early rather than silently dialing the wrong thing.
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return parsedURL{}, fmt.Errorf("websocket: %q must not contain a path; pass it separately", raw)
	}

	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		// No explicit port: fall back to the scheme's default.
		host = rest
		if scheme == "wss" {
			port = "443"
		} else {
			port = "80"
		}
	}
	if host == "" {
		return parsedURL{}, fmt.Errorf("websocket: %q is missing a host", raw)
	}
	return parsedURL{scheme: scheme, host: host, port: port}, nil
}

// hostHeader renders the Host header value for the opening handshake: the
// host, plus ":port" when the port is not the scheme's default.
func (u parsedURL) hostHeader() string {
	if (u.scheme == "ws" && u.port == "80") || (u.scheme == "wss" && u.port == "443") {
		return u.host
	}
	return net.JoinHostPort(u.host, u.port)
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
