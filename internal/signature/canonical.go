package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// preservedField keeps its exact bytes in the canonical body. The gateway
// hashes the payer block as the client sent it.
const preservedField = "payer"

// CanonicalBody minifies a JSON request body while keeping key order. The
// value of the top-level "payer" field is copied verbatim.
func CanonicalBody(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}

	if trimmed[0] != '{' {
		var out bytes.Buffer
		if err := json.Compact(&out, trimmed); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return out.String(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	var out bytes.Buffer
	out.WriteByte('{')

	first := true
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		key, ok := tok.(string)
		if !ok {
			return "", fmt.Errorf("%w: unexpected key token %v", ErrInvalidBody, tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}

		if !first {
			out.WriteByte(',')
		}
		first = false

		writeKey(&out, key)
		out.WriteByte(':')

		if key == preservedField {
			out.Write(raw)
			continue
		}
		if err := json.Compact(&out, raw); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
	}

	if _, err := dec.Token(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("%w: trailing data", ErrInvalidBody)
	}

	out.WriteByte('}')
	return out.String(), nil
}

func writeKey(out *bytes.Buffer, key string) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(key)
	out.Write(bytes.TrimRight(b.Bytes(), "\n"))
}
