// SPDX-License-Identifier: MIT
// Copyright (c) 2025 go-iecp5 contributors.

// Package transport implements the pluggable SecureStream factory: a byte
// stream abstraction that hands back a plain TCP connection or a
// TLS-wrapped one according to an immutable parameter set fixed at
// construction. Negotiation itself belongs to crypto/tls; this package only
// shapes the teacher's own dial helper around the parameter set the
// specification names.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"time"
)

// TLSVersion is the fixed enumeration of negotiable protocol floors/ceilings.
type TLSVersion int

const (
	SSL3_0 TLSVersion = iota
	TLS1_0
	TLS1_1
	TLS1_2
	TLS1_3
)

func (v TLSVersion) goConst() (uint16, error) {
	switch v {
	case SSL3_0:
		return tls.VersionSSL30, nil
	case TLS1_0:
		return tls.VersionTLS10, nil
	case TLS1_1:
		return tls.VersionTLS11, nil
	case TLS1_2:
		return tls.VersionTLS12, nil
	case TLS1_3:
		return tls.VersionTLS13, nil
	default:
		return 0, errors.New("transport: unknown TLSVersion")
	}
}

// Minimum and maximum bounds for the two duration parameters the spec names.
const (
	MinSessionResumptionInterval = 1 * time.Second
	MaxSessionResumptionInterval = 7 * 24 * time.Hour
	MinRenegotiationInterval     = 5 * time.Minute
	MaxRenegotiationInterval     = 24 * time.Hour
)

var (
	ErrVersionRange          = errors.New("transport: MinVersion must be <= MaxVersion")
	ErrSessionResumptionOOR  = errors.New("transport: SessionResumptionInterval out of [1s, 7d]")
	ErrRenegotiationOOR      = errors.New("transport: RenegotiationInterval out of [5m, 24h]")
	ErrMissingCertAndKey     = errors.New("transport: CertPEM and KeyPEM must both be set or both be empty")
	ErrBadCertificate        = errors.New("transport: failed to parse certificate/key pair")
	ErrBadCABundle           = errors.New("transport: failed to parse CA bundle")
)

// TLSParams is the immutable TLS parameter set a SecureStream factory is
// built from once; it is never mutated after TLSParams.Valid succeeds.
type TLSParams struct {
	MinVersion TLSVersion
	MaxVersion TLSVersion

	// CipherSuites restricts negotiation to this allowlist of IANA cipher
	// suite IDs; empty uses crypto/tls's own default preference order.
	CipherSuites []uint16

	// CertPEM/KeyPEM/Passphrase carry this side's own certificate chain and
	// private key. KeyPEM is expected already decrypted; Passphrase is
	// retained only for parity with the collaborator's documented surface
	// and is not itself applied by this package (PEM encryption is a
	// deprecated format crypto/tls does not parse).
	CertPEM    []byte
	KeyPEM     []byte
	Passphrase string

	// CABundlePEM validates the peer's certificate chain.
	CABundlePEM []byte

	// AllowedPeerCerts, when non-empty, pins the accepted peer to exactly
	// this set of DER-encoded certificates (checked after chain validation).
	AllowedPeerCerts [][]byte

	SessionResumptionInterval time.Duration
	RenegotiationInterval     time.Duration
}

// Valid checks the parameter set's invariants without mutating it.
func (p TLSParams) Valid() error {
	if p.MinVersion > p.MaxVersion {
		return ErrVersionRange
	}
	if p.SessionResumptionInterval != 0 &&
		(p.SessionResumptionInterval < MinSessionResumptionInterval || p.SessionResumptionInterval > MaxSessionResumptionInterval) {
		return ErrSessionResumptionOOR
	}
	if p.RenegotiationInterval != 0 &&
		(p.RenegotiationInterval < MinRenegotiationInterval || p.RenegotiationInterval > MaxRenegotiationInterval) {
		return ErrRenegotiationOOR
	}
	if (len(p.CertPEM) == 0) != (len(p.KeyPEM) == 0) {
		return ErrMissingCertAndKey
	}
	return nil
}

// tlsConfig builds the crypto/tls.Config this parameter set describes.
func (p TLSParams) tlsConfig() (*tls.Config, error) {
	if err := p.Valid(); err != nil {
		return nil, err
	}
	minV, err := p.MinVersion.goConst()
	if err != nil {
		return nil, err
	}
	maxV, err := p.MaxVersion.goConst()
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		MinVersion:   minV,
		MaxVersion:   maxV,
		CipherSuites: p.CipherSuites,
	}
	if len(p.CertPEM) > 0 {
		cert, err := tls.X509KeyPair(p.CertPEM, p.KeyPEM)
		if err != nil {
			return nil, ErrBadCertificate
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if len(p.CABundlePEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(p.CABundlePEM) {
			return nil, ErrBadCABundle
		}
		cfg.RootCAs = pool
		cfg.ClientCAs = pool
	}
	if len(p.AllowedPeerCerts) > 0 {
		cfg.VerifyPeerCertificate = verifyPinned(p.AllowedPeerCerts)
	}
	return cfg, nil
}

func verifyPinned(allowed [][]byte) func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("transport: peer presented no certificate")
		}
		leaf := rawCerts[0]
		for _, want := range allowed {
			if string(want) == string(leaf) {
				return nil
			}
		}
		return errors.New("transport: peer certificate not in allowed set")
	}
}

// Factory is a SecureStream factory: Dial returns a plain TCP connection
// when built with Plain, or a TLS-wrapped one when built with TLS params.
type Factory struct {
	tlsConfig *tls.Config // nil selects plain TCP
}

// Plain builds a Factory that hands back unwrapped TCP connections.
func Plain() *Factory { return &Factory{} }

// Secure builds a Factory that wraps every connection in TLS per params.
// params is validated and converted once; the returned Factory is immutable.
func Secure(params TLSParams) (*Factory, error) {
	cfg, err := params.tlsConfig()
	if err != nil {
		return nil, err
	}
	return &Factory{tlsConfig: cfg}, nil
}

// Dial opens addr, performing a TLS handshake under timeout when the
// Factory was built with Secure. Grounded on the teacher's own
// cs104.openConnection dial-then-optionally-wrap sequence.
func (f *Factory) Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if f.tlsConfig == nil {
		return raw, nil
	}
	_ = raw.SetDeadline(time.Now().Add(timeout))
	conn := tls.Client(raw, f.tlsConfig)
	if err := conn.Handshake(); err != nil {
		_ = raw.Close()
		return nil, err
	}
	_ = raw.SetDeadline(time.Time{})
	return conn, nil
}

// Wrap wraps an accepted connection the same way Dial wraps a dialed
// one, for the server side of the same Factory.
func (f *Factory) Wrap(conn net.Conn, timeout time.Duration) (net.Conn, error) {
	if f.tlsConfig == nil {
		return conn, nil
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))
	tlsConn := tls.Server(conn, f.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return tlsConn, nil
}
