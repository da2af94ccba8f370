// Package auth provides the authenticated HTTP transport.
// Every outbound API call goes through Transport, which attaches the
// current bearer credential when one is configured and sends the request
// untouched otherwise. It knows nothing about session states.
package auth

import (
	"net/http"
	"sync"
	"time"
)

// HeaderAuthorization is the header the credential is attached to.
const HeaderAuthorization = "Authorization"

// Transport is an http.RoundTripper that attaches a bearer credential.
// Changing the credential only affects requests issued afterwards.
type Transport struct {
	// Base is the underlying transport. nil means http.DefaultTransport.
	Base http.RoundTripper

	mu    sync.RWMutex
	token string
}

// NewTransport wraps base (nil for http.DefaultTransport).
func NewTransport(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

// SetCredential configures the bearer token. Setting the same token twice is a no-op.
func (t *Transport) SetCredential(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// ClearCredential removes the bearer token. Clearing when none is set is a no-op.
func (t *Transport) ClearCredential() {
	t.SetCredential("")
}

// HasCredential reports whether a token is currently configured.
func (t *Transport) HasCredential() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token != ""
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	token := t.token
	t.mu.RUnlock()

	if token != "" {
		// RoundTrippers must not modify the caller's request
		req = req.Clone(req.Context())
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	}

	return t.base().RoundTrip(req)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// Client returns an http.Client that sends every request through t.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: t,
		Timeout:   timeout,
	}
}
