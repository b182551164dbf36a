// Package signature signs every outbound gateway call.
//
// The signed string is METHOD:PATH:BODYHASH:TIMESTAMP where BODYHASH is the
// lower-case hex SHA-256 of the canonical body. The result is the Base64
// HMAC-SHA256 of that string under the partner secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"paylink-checkout/internal/utils"
)

const (
	HeaderSignature = "x-signature"
	HeaderPartnerID = "x-partner-id"
	HeaderTimestamp = "x-timestamp"
	HeaderSigner    = "x-signer"

	signerName = "frontend"

	// ISO-8601 with milliseconds and a numeric offset.
	timestampLayout = "2006-01-02T15:04:05.000-07:00"
)

type Signer struct {
	secret    []byte
	partnerID string
	now       func() time.Time
}

func NewSigner(secret, partnerID string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{
		secret:    []byte(secret),
		partnerID: partnerID,
		now:       time.Now,
	}, nil
}

// WithClock returns a copy of s that reads time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Signer) PartnerID() string { return s.partnerID }

// Timestamp renders t in Asia/Jakarta, e.g. 2025-01-31T09:39:33.000+07:00.
func Timestamp(t time.Time) string {
	return t.In(utils.JakartaLocation()).Format(timestampLayout)
}

// StringToSign builds the colon-joined input of the HMAC.
func StringToSign(method, path string, body []byte, timestamp string) (string, error) {
	canonical, err := CanonicalBody(body)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(canonical))
	return strings.Join([]string{
		strings.ToUpper(method),
		path,
		hex.EncodeToString(sum[:]),
		timestamp,
	}, ":"), nil
}

func (s *Signer) Sign(method, path string, body []byte, timestamp string) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payload, err := StringToSign(method, path, body, timestamp)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Headers signs a request and returns the headers the gateway expects. The
// timestamp is taken once so the header and the signed input always match.
func (s *Signer) Headers(method, path string, body []byte) (http.Header, error) {
	ts := Timestamp(s.now())

	sig, err := s.Sign(method, path, body, ts)
	if err != nil {
		return nil, err
	}

	h := make(http.Header)
	h.Set(HeaderSignature, sig)
	h.Set(HeaderPartnerID, s.partnerID)
	h.Set(HeaderTimestamp, ts)
	h.Set(HeaderSigner, signerName)
	return h, nil
}
