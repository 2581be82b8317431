package jwtxtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
)

// Server is a fake identity provider exposing OIDC discovery and a JWKS
// endpoint. The published keys and failure mode can change mid-test.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	keys   []jwtx.JWK
	status int
	delay  time.Duration

	hits atomic.Int64
}

// NewServer starts a server publishing the given signers' keys. Close it
// when done.
func NewServer(signers ...*Signer) *Server {
	s := &Server{status: http.StatusOK}
	s.SetSigners(signers...)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", s.handleDiscovery)
	mux.HandleFunc("GET /protocol/openid-connect/certs", s.handleJWKS)
	s.Server = httptest.NewServer(mux)
	return s
}

// Issuer is the issuer URL the server advertises.
func (s *Server) Issuer() string { return s.URL }

// JWKSURI is the key set endpoint.
func (s *Server) JWKSURI() string { return s.URL + "/protocol/openid-connect/certs" }

// Hits counts JWKS requests served, failures included.
func (s *Server) Hits() int64 { return s.hits.Load() }

// SetSigners replaces the published key set.
func (s *Server) SetSigners(signers ...*Signer) {
	keys := make([]jwtx.JWK, 0, len(signers))
	for _, sg := range signers {
		keys = append(keys, sg.PublicJWK())
	}
	s.SetKeys(keys...)
}

// SetKeys publishes raw JWKs, for tests that need odd entries.
func (s *Server) SetKeys(keys ...jwtx.JWK) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = keys
}

// SetStatus makes the JWKS endpoint answer with status and no body when it
// isn't 200.
func (s *Server) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// SetDelay holds every JWKS response for d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Server) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwtx.OIDCDiscovery{
		Issuer:  s.Issuer(),
		JWKSURI: s.JWKSURI(),
	})
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)

	s.mu.Lock()
	keys, status, delay := s.keys, s.status, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwtx.JWKS{Keys: keys})
}
