package websocket

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B13"

// nonce generates the 16 random bytes, base64-encoded, required by
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.1 for
// Sec-WebSocket-Key. The random source itself is treated as an external
// collaborator; this package only consumes it.
func nonce() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", errors.Wrap(err, "failed to generate a handshake nonce")
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// expectedAccept computes the Sec-WebSocket-Accept value a compliant server
// must return for a given client nonce
// (https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.2).
func expectedAccept(clientNonce string) string {
	h := sha1.New()
	h.Write([]byte(clientNonce))
	h.Write([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// handshake performs the HTTP/1.1 Upgrade request and validates the
// server's response, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.1.
func handshake(t Transport, u parsedURL, path string) error {
	clientNonce, err := nonce()
	if err != nil {
		return err
	}

	if err := sendUpgradeRequest(t, u, path, clientNonce); err != nil {
		return errors.Wrap(err, "failed to send WebSocket upgrade request")
	}
	if err := receiveUpgradeResponse(t, clientNonce); err != nil {
		return errors.Wrap(err, "failed to receive WebSocket upgrade response")
	}
	return nil
}

func sendUpgradeRequest(t Transport, u parsedURL, path, clientNonce string) error {
	req := "GET " + path + " HTTP/1.1\r\n" +
		"Host: " + u.hostHeader() + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + clientNonce + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
	b := []byte(req)
	for len(b) > 0 {
		n, err := t.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// readLine reads one CRLF-terminated line directly off the transport, one
// byte at a time. The handshake response is small (a handful of header
// lines) and happens once per connection, so this favors never reading past
// the blank line that ends the response - any byte read past it would
// belong to the first WebSocket frame and must not be lost - over the
// throughput a buffered reader would give.
func readLine(t Transport) (string, error) {
	var line []byte
	var b [1]byte
	for {
		n, err := t.Read(b[:])
		if n == 0 && err == nil {
			continue // would-block on a non-blocking transport: keep waiting.
		}
		if err != nil {
			return "", err
		}
		line = append(line, b[0])
		if b[0] == '\n' {
			return string(line), nil
		}
	}
}

func receiveUpgradeResponse(t Transport, clientNonce string) error {
	status, err := readLine(t)
	if err != nil {
		return errors.Wrap(err, "failed to read the response status line")
	}
	if !strings.HasPrefix(status, "HTTP/1.1 101") {
		return errors.Errorf("expected status code 101, got %q", strings.TrimSpace(status))
	}

	gotAccept := false
	for {
		line, err := readLine(t)
		if err != nil {
			return errors.Wrap(err, "failed to read a response header line")
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Header field names are case-insensitive
		// (https://datatracker.ietf.org/doc/html/rfc2616#section-4.2); every
		// case variant of "Sec-WebSocket-Accept" must be recognized.
		if !strings.EqualFold(strings.TrimSpace(name), "Sec-WebSocket-Accept") {
			continue
		}
		gotAccept = true
		got := strings.TrimSpace(value)
		want := expectedAccept(clientNonce)
		if got != want {
			return errors.Errorf("unexpected Sec-WebSocket-Accept: got %q, want %q", got, want)
		}
	}
	if !gotAccept {
		return errors.New("response is missing a Sec-WebSocket-Accept header")
	}
	return nil
}
