package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// SupportedProxySchemes lists the proxy URL schemes that can be dialed
var SupportedProxySchemes = []string{"socks5", "socks5h", "socks4", "http", "https"}

// Proxy is a parsed proxy URL
type Proxy struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
}

// Addr returns host:port of the proxy server
func (p *Proxy) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// String returns the proxy URL with the password redacted, suitable for logs
func (p *Proxy) String() string {
	u := url.URL{Scheme: p.Scheme, Host: p.Addr()}
	switch {
	case p.Username != "" && p.Password != "":
		u.User = url.UserPassword(p.Username, "xxxxx")
	case p.Username != "":
		u.User = url.User(p.Username)
	}
	return u.String()
}

// ParseProxy parses a proxy URL. An empty string means no proxy and returns nil.
func ParseProxy(raw string) (*Proxy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	if u.Scheme == "" || u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("proxy URL is missing scheme/host/port: %s", raw)
	}

	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid proxy port: %s", u.Port())
	}

	scheme := strings.ToLower(u.Scheme)
	if !lo.Contains(SupportedProxySchemes, scheme) {
		return nil, fmt.Errorf("unsupported proxy type: %s", scheme)
	}

	p := &Proxy{
		Scheme: scheme,
		Host:   u.Hostname(),
		Port:   port,
	}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}

	return p, nil
}

// partsProxyURL builds a socks5 URL from PROXY_ENABLED/PROXY_HOST/PROXY_PORT/PROXY_USER/PROXY_PASS.
// Returns an empty string when the proxy is disabled or incomplete.
func (c *Config) partsProxyURL() string {
	if !c.ProxyEnabled {
		return ""
	}

	host := strings.TrimSpace(c.ProxyHost)
	port := strings.TrimSpace(c.ProxyPort)
	if host == "" || port == "" {
		return ""
	}

	u := url.URL{Scheme: "socks5", Host: net.JoinHostPort(host, port)}
	if c.ProxyUser != "" {
		if c.ProxyPass != "" {
			u.User = url.UserPassword(c.ProxyUser, c.ProxyPass)
		} else {
			u.User = url.User(c.ProxyUser)
		}
	}

	return u.String()
}
