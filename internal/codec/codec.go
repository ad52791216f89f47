// Package codec serializes cache values to the byte blobs kept by the
// durable store.
package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"
	jsoniter "github.com/json-iterator/go"
)

// Codec encodes and decodes opaque cache values.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Default returns the preferred binary codec.
func Default() Codec { return cborCodec }

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "cbor":
		return cborCodec, nil
	case "json":
		return jsonCodec, nil
	case "cbor+snappy":
		return NewSnappy(cborCodec, DefaultSnappyThreshold), nil
	case "json+snappy":
		return NewSnappy(jsonCodec, DefaultSnappyThreshold), nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", name)
	}
}

var cborCodec = newCBOR()

type cborImpl struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBOR() *cborImpl {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(err.Error())
	}
	return &cborImpl{enc: enc, dec: dec}
}

func (c *cborImpl) Name() string { return "cbor" }

func (c *cborImpl) Marshal(v interface{}) ([]byte, error) { return c.enc.Marshal(v) }

func (c *cborImpl) Unmarshal(data []byte, v interface{}) error { return c.dec.Unmarshal(data, v) }

var jsonCodec = jsonImpl{api: jsoniter.ConfigCompatibleWithStandardLibrary}

type jsonImpl struct {
	api jsoniter.API
}

func (jsonImpl) Name() string { return "json" }

func (j jsonImpl) Marshal(v interface{}) ([]byte, error) { return j.api.Marshal(v) }

func (j jsonImpl) Unmarshal(data []byte, v interface{}) error { return j.api.Unmarshal(data, v) }

// DefaultSnappyThreshold is the encoded size above which values are compressed.
const DefaultSnappyThreshold = 1024

const (
	frameRaw    byte = 0
	frameSnappy byte = 1
)

type snappyCodec struct {
	inner     Codec
	threshold int
}

// NewSnappy wraps inner so that encodings of at least threshold bytes are
// snappy-compressed. Each blob carries a one byte frame tag.
func NewSnappy(inner Codec, threshold int) Codec {
	return &snappyCodec{inner: inner, threshold: threshold}
}

func (s *snappyCodec) Name() string { return s.inner.Name() + "+snappy" }

func (s *snappyCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := s.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) < s.threshold {
		return append([]byte{frameRaw}, data...), nil
	}
	out := make([]byte, 1, 1+snappy.MaxEncodedLen(len(data)))
	out[0] = frameSnappy
	return append(out, snappy.Encode(nil, data)...), nil
}

func (s *snappyCodec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("snappy frame: empty blob")
	}
	switch data[0] {
	case frameRaw:
		return s.inner.Unmarshal(data[1:], v)
	case frameSnappy:
		raw, err := snappy.Decode(nil, data[1:])
		if err != nil {
			return fmt.Errorf("snappy frame: %w", err)
		}
		return s.inner.Unmarshal(raw, v)
	default:
		return fmt.Errorf("snappy frame: unknown tag %d", data[0])
	}
}
