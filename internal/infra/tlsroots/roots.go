// Package tlsroots builds the trust store used to reach the backend.
//
// The system roots are always trusted; a PEM bundle or a directory of
// certificates can be added for backends signed by a private CA.
package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNoCertsFound is returned when a PEM source holds no certificates.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")
)

// Pool is a set of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
	added    int
}

// NewPool creates a pool seeded with the system roots. Platforms without
// a readable system store start empty.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddPEM adds every CERTIFICATE block in data.
func (p *Pool) AddPEM(data []byte) error {
	var n int
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		n++
	}
	if n == 0 {
		return ErrNoCertsFound
	}
	p.added += n
	return nil
}

// AddFile adds the certificates of one PEM file, or of every .pem, .crt
// and .cer file when path is a directory.
func (p *Pool) AddFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("tlsroots: %w", err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("tlsroots: read %s: %w", path, err)
		}
		if err := p.AddPEM(data); err != nil {
			return fmt.Errorf("%w (%s)", err, path)
		}
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read dir %s: %w", path, err)
	}
	before := p.added
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pem", ".crt", ".cer":
			// Unreadable files are skipped; an empty result is reported below.
			_ = p.AddFile(filepath.Join(path, e.Name()))
		}
	}
	if p.added == before {
		return fmt.Errorf("%w (%s)", ErrNoCertsFound, path)
	}
	return nil
}

// Added returns how many certificates were added beyond the system roots.
func (p *Pool) Added() int {
	return p.added
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// TLSConfig returns a client TLS config trusting this pool.
func (p *Pool) TLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:    p.certPool,
		MinVersion: tls.VersionTLS12,
	}
}

// Transport returns an HTTP transport trusting the system roots plus the
// certificates at caPath. An empty caPath returns nil, meaning the
// default transport.
func Transport(caPath string) (*http.Transport, error) {
	if caPath == "" {
		return nil, nil
	}
	pool := NewPool()
	if err := pool.AddFile(caPath); err != nil {
		return nil, err
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = pool.TLSConfig()
	return tr, nil
}
