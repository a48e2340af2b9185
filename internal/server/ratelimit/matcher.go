package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is returned for requests that are never throttled.
var unlimited = EndpointConfig{}

// MatchEndpoint picks the configuration for a request. Health checks and CORS
// preflights are unlimited. An exact path match wins over a prefix entry
// (a Path ending in "/", e.g. "/runs/" covers "/runs/last"); among prefix
// entries the longest wins. Nil means the default limit applies.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodOptions || (path == "/health" && method == http.MethodGet) {
		u := unlimited
		return &u
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			if best == nil || len(c.Path) > len(best.Path) {
				best = c
			}
		}
	}
	return best
}
