package client

import (
	"net/http"
	"slices"
	"time"
)

// Config holds the defaults applied to every request a [Client] prepares.
// A Client copies its Config at Build time and never mutates it, so it is
// safe for concurrent use by any number of requests.
type Config struct {
	// BaseURL prefixes request URLs that are not absolute.
	BaseURL string
	// Headers are merged under request-specific headers.
	Headers http.Header
	// Params are placed before request-specific parameters.
	Params []Param
	// Timeout bounds each request unless the request sets its own.
	Timeout time.Duration
}

func (c Config) clone() Config {
	return Config{
		BaseURL: c.BaseURL,
		Headers: c.Headers.Clone(),
		Params:  slices.Clone(c.Params),
		Timeout: c.Timeout,
	}
}
