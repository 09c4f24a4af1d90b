package providers

import (
	"net"
	"net/http"
	"time"

	"datasync/internal/structures"
)

// NewHttpClientProvider returns the client used against the source API. The
// configured timeout bounds the whole request including the body read.
func NewHttpClientProvider(conf *structures.Config) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   conf.Api.Timeout,
		Transport: transport,
	}
}
