package telegram

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/fastupload/tgupbench/pkg/config"
)

const (
	dialTimeout   = 15 * time.Second
	dialKeepAlive = 30 * time.Second
)

// DialFunc opens a TCP connection to a Telegram data center
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// NewDialer returns the dial function for MTProto connections. A nil proxy dials directly.
func NewDialer(p *config.Proxy) (DialFunc, error) {
	direct := &net.Dialer{Timeout: dialTimeout, KeepAlive: dialKeepAlive}
	if p == nil {
		return direct.DialContext, nil
	}

	slog.Debug("Using proxy", "proxy", p.String())

	switch p.Scheme {
	case "socks5", "socks5h":
		return socks5Dialer(p, direct)
	case "socks4":
		return func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialSOCKS4(ctx, direct, p, addr)
		}, nil
	case "http", "https":
		return func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialHTTPConnect(ctx, direct, p, addr)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported proxy type: %s", p.Scheme)
	}
}

func socks5Dialer(p *config.Proxy, forward *net.Dialer) (DialFunc, error) {
	var auth *proxy.Auth
	if p.Username != "" {
		auth = &proxy.Auth{
			User:     p.Username,
			Password: p.Password,
		}
	}

	dialer, err := proxy.SOCKS5("tcp", p.Addr(), auth, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer does not support contexts")
	}
	return contextDialer.DialContext, nil
}

// dialHTTPConnect opens a tunnel through an HTTP(S) proxy using CONNECT
func dialHTTPConnect(ctx context.Context, forward *net.Dialer, p *config.Proxy, targetAddr string) (net.Conn, error) {
	conn, err := forward.DialContext(ctx, "tcp", p.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	if p.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: p.Host, MinVersion: tls.VersionTLS12})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("proxy TLS handshake failed: %w", err)
		}
		conn = tlsConn
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	connectReq := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", targetAddr, targetAddr)
	if p.Username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(p.Username + ":" + p.Password))
		connectReq += fmt.Sprintf("Proxy-Authorization: Basic %s\r\n", creds)
	}
	connectReq += "\r\n"

	if _, err := io.WriteString(conn, connectReq); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT request: %w", err)
	}

	reader := bufio.NewReader(conn)
	resp, err := http.ReadResponse(reader, &http.Request{Method: http.MethodConnect})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}

	// A successful CONNECT response has no body; the rest of the stream is the tunnel
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT failed with status %d: %s", resp.StatusCode, resp.Status)
	}

	// The proxy must not send anything after the status line until we do
	if reader.Buffered() > 0 {
		conn.Close()
		return nil, fmt.Errorf("proxy sent unexpected data after CONNECT response")
	}

	return conn, nil
}

const (
	socks4Version       = 0x04
	socks4CmdConnect    = 0x01
	socks4ReplyGranted  = 0x5a
	socks4ReplyLength   = 8
	socks4MaxUserIDSize = 255
)

// dialSOCKS4 performs a SOCKS4 CONNECT. SOCKS4 carries IPv4 addresses only,
// so host names are resolved locally first.
func dialSOCKS4(ctx context.Context, forward *net.Dialer, p *config.Proxy, targetAddr string) (net.Conn, error) {
	req, err := socks4Request(ctx, targetAddr, p.Username)
	if err != nil {
		return nil, err
	}

	conn, err := forward.DialContext(ctx, "tcp", p.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	if _, err := conn.Write(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send SOCKS4 request: %w", err)
	}

	reply := make([]byte, socks4ReplyLength)
	if _, err := io.ReadFull(conn, reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read SOCKS4 reply: %w", err)
	}
	if reply[1] != socks4ReplyGranted {
		conn.Close()
		return nil, fmt.Errorf("SOCKS4 proxy rejected connection (code 0x%02x)", reply[1])
	}

	return conn, nil
}

func socks4Request(ctx context.Context, targetAddr, userID string) ([]byte, error) {
	host, portStr, err := net.SplitHostPort(targetAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid target address %q: %w", targetAddr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid target port %q", portStr)
	}
	if len(userID) > socks4MaxUserIDSize {
		return nil, fmt.Errorf("SOCKS4 user id too long")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
		}
		for _, a := range addrs {
			if a.IP.To4() != nil {
				ip = a.IP
				break
			}
		}
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("SOCKS4 supports IPv4 only, got %s", host)
	}

	req := make([]byte, 0, 9+len(userID))
	req = append(req, socks4Version, socks4CmdConnect)
	req = binary.BigEndian.AppendUint16(req, uint16(port))
	req = append(req, ip4...)
	req = append(req, userID...)
	req = append(req, 0x00)
	return req, nil
}
