package llm

import (
	"net/http"
	"net/url"
	"time"
)

// newProxyFunc routes requests through the configured proxies,
// falling back to the environment when none are set.
func newProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// newHTTPClient builds the client shared by the JSON adapters
func newHTTPClient(config Config, fallbackTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: config.timeout(fallbackTimeout),
		Transport: &http.Transport{
			Proxy: newProxyFunc(config.HTTPProxy, config.HTTPSProxy),
		},
	}
}
