// Package decode converts response bodies into typed values.
//
// Every decoder satisfies [Decoder], so callers may supply their own via
// [Func]:
//
//	dec := decode.Func[Photo](func(r io.Reader) (Photo, error) {
//		var p Photo
//		err := gob.NewDecoder(r).Decode(&p)
//		return p, err
//	})
package decode

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

// ErrEmptyBody is returned by structured decoders for an empty body.
var ErrEmptyBody = errors.New("empty body")

// ErrTrailingData is returned when a document is followed by more content.
var ErrTrailingData = errors.New("trailing data after document")

// Decoder turns a readable stream into a value of T.
type Decoder[T any] interface {
	Decode(r io.Reader) (T, error)
}

// Func adapts an ordinary function to a Decoder.
type Func[T any] func(r io.Reader) (T, error)

// Decode implements Decoder.
func (f Func[T]) Decode(r io.Reader) (T, error) {
	return f(r)
}

// String returns the identity decoder producing the raw body as text.
func String() Decoder[string] {
	return Func[string](func(r io.Reader) (string, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("reading body: %w", err)
		}
		return string(b), nil
	})
}

// Bytes returns the identity decoder producing the raw body.
func Bytes() Decoder[[]byte] {
	return Func[[]byte](func(r io.Reader) ([]byte, error) {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
		return b, nil
	})
}

// JSONOption tunes the JSON decoder.
type JSONOption func(*json.Decoder)

// UseNumber decodes numbers into [json.Number] instead of float64.
func UseNumber() JSONOption {
	return func(d *json.Decoder) { d.UseNumber() }
}

// DisallowUnknownFields rejects objects carrying fields T does not declare.
func DisallowUnknownFields() JSONOption {
	return func(d *json.Decoder) { d.DisallowUnknownFields() }
}

// JSON decodes the body as a JSON document into T.
func JSON[T any](opts ...JSONOption) Decoder[T] {
	return Func[T](func(r io.Reader) (T, error) {
		var v T

		d := json.NewDecoder(r)
		for _, opt := range opts {
			opt(d)
		}

		if err := d.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return v, ErrEmptyBody
			}
			return v, fmt.Errorf("decoding json: %w", err)
		}
		if _, err := d.Token(); !errors.Is(err, io.EOF) {
			return v, fmt.Errorf("decoding json: %w", ErrTrailingData)
		}

		return v, nil
	})
}

// FastJSON decodes JSON with sonic. It suits large payloads where
// encoding/json becomes the bottleneck.
func FastJSON[T any]() Decoder[T] {
	return Func[T](func(r io.Reader) (T, error) {
		var v T

		b, err := io.ReadAll(r)
		if err != nil {
			return v, fmt.Errorf("reading body: %w", err)
		}
		if len(b) == 0 {
			return v, ErrEmptyBody
		}

		if err := sonic.Unmarshal(b, &v); err != nil {
			return v, fmt.Errorf("decoding json: %w", err)
		}

		return v, nil
	})
}

// YAML decodes the body as a YAML document into T.
func YAML[T any]() Decoder[T] {
	return Func[T](func(r io.Reader) (T, error) {
		var v T

		if err := yaml.NewDecoder(r).Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return v, ErrEmptyBody
			}
			return v, fmt.Errorf("decoding yaml: %w", err)
		}

		return v, nil
	})
}

// XML decodes the body as an XML document into T.
func XML[T any]() Decoder[T] {
	return Func[T](func(r io.Reader) (T, error) {
		var v T

		d := xml.NewDecoder(r)
		if err := d.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return v, ErrEmptyBody
			}
			return v, fmt.Errorf("decoding xml: %w", err)
		}
		if err := xmlEnd(d); err != nil {
			return v, fmt.Errorf("decoding xml: %w", err)
		}

		return v, nil
	})
}

// xmlEnd consumes what follows the root element, allowing only whitespace,
// comments and processing instructions.
func xmlEnd(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return ErrTrailingData
			}
		default:
			return ErrTrailingData
		}
	}
}
