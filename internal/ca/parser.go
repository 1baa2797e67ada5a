package ca

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"time"
)

// Parser errors.
var (
	// ErrNoPEMBlock indicates the input contained no CERTIFICATE block.
	ErrNoPEMBlock = errors.New("no PEM certificate block found")

	// ErrMalformedCertificate indicates the DER payload failed to parse.
	ErrMalformedCertificate = errors.New("malformed certificate")
)

// CertificateInfo is the parsed shape of an X.509 certificate that the
// validation pipeline consumes.
type CertificateInfo struct {
	// Subject holds the parsed subject fields.
	Subject SubjectInfo

	// Issuer holds the parsed issuer fields.
	Issuer SubjectInfo

	// SerialNumber is the certificate serial number in decimal form.
	SerialNumber string

	// Fingerprint is the SHA-256 fingerprint of the DER encoding.
	Fingerprint string

	// ValidFrom is when the certificate becomes valid.
	ValidFrom time.Time

	// ValidTo is when the certificate expires.
	ValidTo time.Time

	// DNSNames contains the DNS SANs.
	DNSNames []string
}

// SubjectInfo contains parsed distinguished-name fields.
type SubjectInfo struct {
	CommonName         string
	Organization       string
	OrganizationalUnit string
}

// Parser turns PEM bytes into certificate info. The pipeline treats
// parsing as a swappable capability so tests and alternate decoders
// can stand in for crypto/x509.
type Parser interface {
	// ParsePEM parses the first CERTIFICATE block in the PEM input.
	ParsePEM(pemBytes []byte) (*CertificateInfo, error)
}

// x509Parser implements Parser using crypto/x509.
type x509Parser struct{}

// NewParser creates the default X.509 certificate parser.
func NewParser() Parser {
	return &x509Parser{}
}

// ParsePEM implements Parser.
func (p *x509Parser) ParsePEM(pemBytes []byte) (*CertificateInfo, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, ErrNoPEMBlock
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCertificate, err)
	}

	return FromX509(cert), nil
}

// FromX509 converts a parsed x509 certificate into CertificateInfo.
func FromX509(cert *x509.Certificate) *CertificateInfo {
	return &CertificateInfo{
		Subject: SubjectInfo{
			CommonName:         cert.Subject.CommonName,
			Organization:       first(cert.Subject.Organization),
			OrganizationalUnit: first(cert.Subject.OrganizationalUnit),
		},
		Issuer: SubjectInfo{
			CommonName:         cert.Issuer.CommonName,
			Organization:       first(cert.Issuer.Organization),
			OrganizationalUnit: first(cert.Issuer.OrganizationalUnit),
		},
		SerialNumber: cert.SerialNumber.String(),
		Fingerprint:  Fingerprint(cert),
		ValidFrom:    cert.NotBefore,
		ValidTo:      cert.NotAfter,
		DNSNames:     cert.DNSNames,
	}
}

// Fingerprint calculates the SHA-256 fingerprint of a certificate.
func Fingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(hash[:])
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Ensure x509Parser implements Parser.
var _ Parser = (*x509Parser)(nil)
