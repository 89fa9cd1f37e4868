package websocket

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeServer accepts one handshake over a net.Pipe half and replies with a
// valid 101 response whose Sec-WebSocket-Accept header name is spelled as
// headerName, its value computed from whatever Sec-WebSocket-Key the client
// sent.
func fakeServer(t *testing.T, server net.Conn, headerName string) {
	t.Helper()
	r := bufio.NewReader(server)
	var clientNonce string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Sec-WebSocket-Key") {
			clientNonce = strings.TrimSpace(value)
		}
	}
	accept := expectedAccept(clientNonce)
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		headerName + ": " + accept + "\r\n" +
		"\r\n"
	_, err := server.Write([]byte(resp))
	require.NoError(t, err)
}

func TestHandshakeSuccess(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go fakeServer(t, server, "Sec-WebSocket-Accept")

	t1 := newNetTransport(client, false)
	u := parsedURL{scheme: "ws", host: "example.com", port: "80"}
	require.NoError(t, handshake(t1, u, "/"))
}

func TestHandshakeAcceptHeaderCaseInsensitive(t *testing.T) {
	variants := []string{
		"sec-websocket-accept",
		"SEC-WEBSOCKET-ACCEPT",
		"Sec-Websocket-Accept",
		"sEc-WebSocket-AccEpt",
	}
	for _, headerName := range variants {
		t.Run(headerName, func(t *testing.T) {
			server, client := net.Pipe()
			defer server.Close()
			defer client.Close()

			go fakeServer(t, server, headerName)

			t1 := newNetTransport(client, false)
			u := parsedURL{scheme: "ws", host: "example.com", port: "80"}
			require.NoError(t, handshake(t1, u, "/"))
		})
	}
}

func TestHandshakeRejectsNon101Status(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		r := bufio.NewReader(server)
		for {
			line, err := r.ReadString('\n')
			if err != nil || strings.TrimSpace(line) == "" {
				break
			}
		}
		server.Write([]byte("HTTP/1.1 404 Not Found\r\n\r\n"))
	}()

	t1 := newNetTransport(client, false)
	u := parsedURL{scheme: "ws", host: "example.com", port: "80"}
	require.Error(t, handshake(t1, u, "/"))
}

func TestHandshakeRejectsWrongAccept(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		r := bufio.NewReader(server)
		for {
			line, err := r.ReadString('\n')
			if err != nil || strings.TrimSpace(line) == "" {
				break
			}
		}
		server.Write([]byte("HTTP/1.1 101 Switching Protocols\r\n" +
			"Sec-WebSocket-Accept: not-the-right-value\r\n\r\n"))
	}()

	t1 := newNetTransport(client, false)
	u := parsedURL{scheme: "ws", host: "example.com", port: "80"}
	require.Error(t, handshake(t1, u, "/"))
}

func TestHandshakeRejectsMissingAccept(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		r := bufio.NewReader(server)
		for {
			line, err := r.ReadString('\n')
			if err != nil || strings.TrimSpace(line) == "" {
				break
			}
		}
		server.Write([]byte("HTTP/1.1 101 Switching Protocols\r\n\r\n"))
	}()

	t1 := newNetTransport(client, false)
	u := parsedURL{scheme: "ws", host: "example.com", port: "80"}
	require.Error(t, handshake(t1, u, "/"))
}
