package state

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// MaxDecodedSize bounds the decompressed size of an encoded document.
const MaxDecodedSize = 64 << 20

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("state: building CBOR encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("state: building CBOR decoder: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("state: creating zstd encoder: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		panic("state: creating zstd decoder: " + err.Error())
	}
}

// Marshal encodes doc as deterministic CBOR. Records are sorted by id first,
// so equal trees always produce equal bytes.
func Marshal(doc Document) ([]byte, error) {
	doc = doc.Clone()
	doc.Sort()
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("state: marshal document: %w", err)
	}
	return data, nil
}

// Unmarshal decodes CBOR produced by Marshal.
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if err := decMode.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("state: unmarshal document: %w", err)
	}
	for i := range doc.Records {
		doc.Records[i].Value = normalizeValue(doc.Records[i].Value)
		doc.Records[i].Extensions = normalizeMap(doc.Records[i].Extensions)
	}
	return doc, nil
}

// Encode marshals doc and compresses the result with zstd.
func Encode(doc Document) ([]byte, error) {
	data, err := Marshal(doc)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// Decode reverses Encode and validates the document.
func Decode(data []byte) (Document, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return Document{}, fmt.Errorf("state: decompress document: %w", err)
	}
	doc, err := Unmarshal(raw)
	if err != nil {
		return Document{}, err
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ShareString packs doc into a URL-safe string.
func ShareString(doc Document) (string, error) {
	data, err := Encode(doc)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// ParseShareString reverses ShareString.
func ParseShareString(s string) (Document, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Document{}, fmt.Errorf("state: decode share string: %w", err)
	}
	return Decode(data)
}

// Fingerprint is the hex BLAKE3 digest of the document's canonical CBOR,
// ignoring Version. Documents describing the same tree share a fingerprint.
func Fingerprint(doc Document) (string, error) {
	doc.Version = 0
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
