// Package server runs the gateway's HTTP listener
package server

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"net"
	"net/http"
	"time"
)

// Server represents an HTTP server
type Server struct {
	srv     *http.Server
	tlsCert string
	tlsKey  string
	errc    chan error
}

// New creates a new server instance. TLS is used when both cert and key are set.
func New(handler http.Handler, port, tlsCert, tlsKey string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		tlsCert: tlsCert,
		tlsKey:  tlsKey,
		errc:    make(chan error, 1),
	}
}

// Start binds the listening socket and serves in the background. Errors binding
// the port are returned; later serve errors are delivered on Errors.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln in the background
func (s *Server) Serve(ln net.Listener) error {
	useTLS := s.tlsCert != "" && s.tlsKey != ""
	if useTLS {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	go func() {
		var err error
		if useTLS {
			err = s.srv.ServeTLS(ln, s.tlsCert, s.tlsKey)
		} else {
			err = s.srv.Serve(ln)
		}
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.errc <- err
		}
		close(s.errc)
	}()
	return nil
}

// Errors yields the error that stopped the server, if any, and is closed once the
// server has stopped
func (s *Server) Errors() <-chan error {
	return s.errc
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
