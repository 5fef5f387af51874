package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultProxyAddr is the SOCKS5 listener of a local Tor daemon
const DefaultProxyAddr = "127.0.0.1:9050"

// NewTransport returns an HTTP transport. When proxyAddr is non-empty every
// connection is dialed through that SOCKS5 proxy, hostname resolution
// included, so DNS lookups do not leak around it.
func NewTransport(proxyAddr string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second

	if proxyAddr == "" {
		return transport, nil
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", proxyAddr, err)
	}

	// Proxy settings from the environment must not bypass the SOCKS dialer
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return transport, nil
}

// ProxyURL renders proxyAddr the way command-line tools expect it
func ProxyURL(proxyAddr string) string {
	if proxyAddr == "" {
		return ""
	}
	return "socks5://" + proxyAddr
}
