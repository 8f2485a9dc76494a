package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/gowebpki/jcs"
)

// Canonicalize returns the RFC 8785 (JCS) encoding of v.
//
// Object keys are sorted, insignificant whitespace is removed and numbers are
// written in their shortest ECMAScript form, so 1, 1.0 and 1e0 encode alike.
// A json.RawMessage is taken as already-encoded JSON. It must be valid UTF-8
// and must not repeat a key within an object.
func Canonicalize(v any) ([]byte, error) {
	raw, ok := v.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(v)
		if err != nil {
			return nil, &SerializationError{Err: err}
		}
	}

	if err := checkStrict(raw); err != nil {
		return nil, &SerializationError{Err: err}
	}

	// jcs only accepts an object or array at the top level
	wrapped := make([]byte, 0, len(raw)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, raw...)
	wrapped = append(wrapped, ']')

	out, err := jcs.Transform(wrapped)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	return out[1 : len(out)-1], nil
}

type scope struct {
	keys    map[string]struct{} // nil for arrays
	wantKey bool
}

// checkStrict accepts exactly one JSON value in valid UTF-8 whose objects
// never repeat a key. encoding/json alone would keep the last duplicate and
// replace bad bytes with U+FFFD, so two different documents could encode alike.
func checkStrict(raw []byte) error {
	if !utf8.Valid(raw) {
		return errors.New("invalid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var stack []*scope
	values := 0
	done := func() {
		if len(stack) == 0 {
			values++
			return
		}
		if top := stack[len(stack)-1]; top.keys != nil {
			top.wantKey = true
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if values > 0 {
			return errors.New("unexpected data after JSON value")
		}

		if n := len(stack); n > 0 && stack[n-1].wantKey {
			top := stack[n-1]
			if tok == json.Delim('}') {
				stack = stack[:n-1]
				done()
				continue
			}
			key, ok := tok.(string)
			if !ok {
				return fmt.Errorf("unexpected object key %v", tok)
			}
			if _, dup := top.keys[key]; dup {
				return fmt.Errorf("duplicate key %q", key)
			}
			top.keys[key] = struct{}{}
			top.wantKey = false
			continue
		}

		switch tok {
		case json.Delim('{'):
			stack = append(stack, &scope{keys: map[string]struct{}{}, wantKey: true})
		case json.Delim('['):
			stack = append(stack, &scope{})
		case json.Delim(']'):
			stack = stack[:len(stack)-1]
			done()
		default:
			done()
		}
	}

	if values != 1 {
		return errors.New("empty JSON value")
	}
	return nil
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// encodeJSON writes v without HTML escaping and without the trailing newline
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
