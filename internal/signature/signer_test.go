package signature

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testTS     = "2025-01-31T09:39:33.000+07:00"
)

func TestNewSigner(t *testing.T) {
	_, err := NewSigner("", "partner")
	assert.True(t, errors.Is(err, ErrMissingSecret))

	s, err := NewSigner(testSecret, "partner")
	require.NoError(t, err)
	assert.Equal(t, "partner", s.PartnerID())
}

func TestCanonicalBody(t *testing.T) {
	t.Run("MinifiesAndKeepsOrder", func(t *testing.T) {
		got, err := CanonicalBody([]byte(`{
			"totalAmount": 20141,
			"items": [ { "id": 1, "name": "Kopi Susu" } ],
			"paymentMethod": "QRIS"
		}`))
		require.NoError(t, err)
		assert.Equal(t, `{"totalAmount":20141,"items":[{"id":1,"name":"Kopi Susu"}],"paymentMethod":"QRIS"}`, got)
	})

	t.Run("PreservesPayer", func(t *testing.T) {
		got, err := CanonicalBody([]byte(`{ "a" : 1, "payer": { "name" :  "Budi" } }`))
		require.NoError(t, err)
		assert.Equal(t, `{"a":1,"payer":{ "name" :  "Budi" }}`, got)
	})

	t.Run("NestedPayerIsMinified", func(t *testing.T) {
		got, err := CanonicalBody([]byte(`{"meta": {"payer": { "x" : 1 }}}`))
		require.NoError(t, err)
		assert.Equal(t, `{"meta":{"payer":{"x":1}}}`, got)
	})

	t.Run("NoHTMLEscaping", func(t *testing.T) {
		got, err := CanonicalBody([]byte(`{"a&b": "<x>"}`))
		require.NoError(t, err)
		assert.Equal(t, `{"a&b":"<x>"}`, got)
	})

	t.Run("Empty", func(t *testing.T) {
		got, err := CanonicalBody(nil)
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("Array", func(t *testing.T) {
		got, err := CanonicalBody([]byte(`[ 1, 2 ]`))
		require.NoError(t, err)
		assert.Equal(t, `[1,2]`, got)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, in := range []string{`{"a":}`, `{"a":1} {"b":2}`, `{invalid`} {
			_, err := CanonicalBody([]byte(in))
			assert.True(t, errors.Is(err, ErrInvalidBody), "input %q", in)
		}
	})
}

func TestStringToSign(t *testing.T) {
	got, err := StringToSign("get", "/order/status/qris/1", nil, testTS)
	require.NoError(t, err)

	parts := strings.Split(got, ":")
	// The timestamp carries two colons of its own.
	assert.Equal(t, "GET", parts[0])
	assert.Equal(t, "/order/status/qris/1", parts[1])
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", parts[2])
	assert.True(t, strings.HasSuffix(got, ":"+testTS))
}

func TestSign(t *testing.T) {
	s, err := NewSigner(testSecret, "partner")
	require.NoError(t, err)

	body := []byte(`{"paymentMethod":"QRIS","totalAmount":20141,"payer":{ "name" :  "Budi" }}`)

	t.Run("KnownVector", func(t *testing.T) {
		sig, err := s.Sign("POST", "/order/create/qris", body, testTS)
		require.NoError(t, err)
		assert.Equal(t, "ftFMy2LOHaRSGyaj2UPaCGffRm+9qwV/jcc+yhPeslM=", sig)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := s.Sign("POST", "/order/create/qris", body, testTS)
		require.NoError(t, err)
		b, err := s.Sign("POST", "/order/create/qris", body, testTS)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("WhitespaceOutsidePayerIgnored", func(t *testing.T) {
		a, _ := s.Sign("POST", "/p", body, testTS)
		b, _ := s.Sign("POST", "/p", []byte(`{ "paymentMethod" : "QRIS", "totalAmount" : 20141, "payer":{ "name" :  "Budi" } }`), testTS)
		assert.Equal(t, a, b)
	})

	t.Run("EveryInputMatters", func(t *testing.T) {
		base, _ := s.Sign("POST", "/p", body, testTS)

		variants := map[string]func() (string, error){
			"method": func() (string, error) { return s.Sign("PUT", "/p", body, testTS) },
			"path":   func() (string, error) { return s.Sign("POST", "/q", body, testTS) },
			"body": func() (string, error) {
				return s.Sign("POST", "/p", []byte(`{"paymentMethod":"QRIS","totalAmount":20142,"payer":{ "name" :  "Budi" }}`), testTS)
			},
			"payer spacing": func() (string, error) {
				return s.Sign("POST", "/p", []byte(`{"paymentMethod":"QRIS","totalAmount":20141,"payer":{"name":"Budi"}}`), testTS)
			},
			"timestamp": func() (string, error) { return s.Sign("POST", "/p", body, "2025-01-31T09:39:34.000+07:00") },
		}
		for name, fn := range variants {
			sig, err := fn()
			require.NoError(t, err, name)
			assert.NotEqual(t, base, sig, name)
		}

		other, _ := NewSigner("other-secret", "partner")
		sig, _ := other.Sign("POST", "/p", body, testTS)
		assert.NotEqual(t, base, sig, "secret")
	})

	t.Run("NilSigner", func(t *testing.T) {
		var nilSigner *Signer
		_, err := nilSigner.Sign("GET", "/", nil, testTS)
		assert.True(t, errors.Is(err, ErrMissingSecret))
	})
}

func TestTimestamp(t *testing.T) {
	in := time.Date(2025, 1, 31, 2, 39, 33, 5*int(time.Millisecond), time.UTC)
	assert.Equal(t, "2025-01-31T09:39:33.005+07:00", Timestamp(in))
}

func TestHeaders(t *testing.T) {
	fixed := time.Date(2025, 1, 31, 2, 39, 33, 0, time.UTC)
	base, err := NewSigner(testSecret, "partner-9")
	require.NoError(t, err)
	s := base.WithClock(func() time.Time { return fixed })

	body := []byte(`{"a":1}`)
	h, err := s.Headers("POST", "/order/create/va", body)
	require.NoError(t, err)

	assert.Equal(t, testTS, h.Get(HeaderTimestamp))
	assert.Equal(t, "partner-9", h.Get(HeaderPartnerID))
	assert.Equal(t, "frontend", h.Get(HeaderSigner))

	// Signature must be computed over the exact header timestamp.
	want, err := s.Sign("POST", "/order/create/va", body, h.Get(HeaderTimestamp))
	require.NoError(t, err)
	assert.Equal(t, want, h.Get(HeaderSignature))
}
