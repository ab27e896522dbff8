package llm

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// newHTTPClient builds the HTTP client shared by the hand-rolled providers.
// ALL_PROXY with a socks scheme routes through a SOCKS5 dialer; anything else
// falls back to the standard environment proxy handling.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	if addr := proxyAddrFromEnv(); addr != "" {
		if u, err := url.Parse(addr); err == nil {
			if u.Scheme == "socks" {
				u.Scheme = "socks5"
			}
			if strings.HasPrefix(u.Scheme, "socks5") {
				if dialer, err := proxy.FromURL(u, proxy.Direct); err == nil {
					transport.Proxy = nil
					transport.Dial = dialer.Dial
				}
			}
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// proxyAddrFromEnv returns the first non-empty ALL_PROXY variant.
func proxyAddrFromEnv() string {
	for _, key := range []string{"ALL_PROXY", "all_proxy"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
