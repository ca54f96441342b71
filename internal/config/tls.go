package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TemporalTLS builds the client TLS config for Temporal.
// Returns nil, nil when no client cert is configured (plaintext).
func (c *Config) TemporalTLS() (*tls.Config, error) {
	if c.TemporalTLSCert == "" && c.TemporalTLSKey == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.TemporalTLSCert, c.TemporalTLSKey)
	if err != nil {
		return nil, fmt.Errorf("load temporal client cert: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ServerName:   c.TemporalTLSServerName,
		MinVersion:   tls.VersionTLS12,
	}

	if c.TemporalTLSCACert == "" {
		return tlsConfig, nil
	}

	caPEM, err := os.ReadFile(c.TemporalTLSCACert)
	if err != nil {
		return nil, fmt.Errorf("read temporal CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("parse temporal CA cert %s: no certificates found", c.TemporalTLSCACert)
	}
	tlsConfig.RootCAs = pool

	return tlsConfig, nil
}
