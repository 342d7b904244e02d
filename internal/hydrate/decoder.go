// Package hydrate turns the untyped value of a token into a Go value.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoValue is returned for tokens without a value, such as unresolved
// aliases.
var ErrNoValue = errors.New("hydrate: token has no value")

// Context identifies the token whose value is being decoded.
type Context struct {
	Token string
	Type  string
}

// Stage names the step of Decode that failed.
type Stage string

const (
	StageCopy      Stage = "copy"
	StageNormalize Stage = "normalize"
	StageDecode    Stage = "decode"
	StageValidate  Stage = "validate"
)

// Error reports which token failed and at which stage.
type Error struct {
	Context
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	typ := e.Type
	if typ == "" {
		typ = "untyped"
	}
	return fmt.Sprintf("hydrate: %s %s token %q: %v", e.Stage, typ, e.Token, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Normalizer rewrites the raw value before decoding. It receives a private
// copy and may mutate it. A nil result keeps the current value.
type Normalizer func(Context, any) (any, error)

// Validator checks or adjusts the decoded value.
type Validator[T any] func(Context, *T) error

// DecodeFunc replaces the JSON mapping step.
type DecodeFunc[T any] func(Context, any) (T, error)

// Option configures a Decoder.
type Option[T any] func(*Decoder[T])

// Decoder maps token values onto T through their JSON form, so json struct
// tags apply.
type Decoder[T any] struct {
	normalizers []Normalizer
	validators  []Validator[T]
	decode      DecodeFunc[T]
	strict      bool
	useNumber   bool
}

// WithNormalizer appends a step run before decoding.
func WithNormalizer[T any](fn Normalizer) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.normalizers = append(d.normalizers, fn)
		}
	}
}

// WithValidator appends a step run after decoding.
func WithValidator[T any](fn Validator[T]) Option[T] {
	return func(d *Decoder[T]) {
		if fn != nil {
			d.validators = append(d.validators, fn)
		}
	}
}

// WithStrict rejects object keys with no matching field in T.
func WithStrict[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithNumbers keeps numbers as json.Number where T holds them as any.
func WithNumbers[T any]() Option[T] {
	return func(d *Decoder[T]) {
		d.useNumber = true
	}
}

// WithDecodeFunc replaces the JSON mapping step. Normalizers and validators
// still run around it.
func WithDecodeFunc[T any](fn DecodeFunc[T]) Option[T] {
	return func(d *Decoder[T]) {
		d.decode = fn
	}
}

// NewDecoder constructs a Decoder for T.
func NewDecoder[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts value into T. The caller's value is never mutated.
func (d *Decoder[T]) Decode(ctx Context, value any) (T, error) {
	var zero T
	if value == nil {
		return zero, &Error{Context: ctx, Stage: StageCopy, Err: ErrNoValue}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return zero, &Error{Context: ctx, Stage: StageCopy, Err: err}
	}

	var out T
	if len(d.normalizers) == 0 && d.decode == nil {
		out, err = d.mapJSON(raw)
	} else {
		var current any
		if err := json.Unmarshal(raw, &current); err != nil {
			return zero, &Error{Context: ctx, Stage: StageCopy, Err: err}
		}
		for _, normalize := range d.normalizers {
			next, err := normalize(ctx, current)
			if err != nil {
				return zero, &Error{Context: ctx, Stage: StageNormalize, Err: err}
			}
			if next != nil {
				current = next
			}
		}
		out, err = d.mapValue(ctx, current)
	}
	if err != nil {
		return zero, &Error{Context: ctx, Stage: StageDecode, Err: err}
	}
	for _, validate := range d.validators {
		if err := validate(ctx, &out); err != nil {
			return zero, &Error{Context: ctx, Stage: StageValidate, Err: err}
		}
	}
	return out, nil
}

func (d *Decoder[T]) mapValue(ctx Context, value any) (T, error) {
	if d.decode != nil {
		return d.decode(ctx, value)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		var zero T
		return zero, err
	}
	return d.mapJSON(raw)
}

func (d *Decoder[T]) mapJSON(raw []byte) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if d.useNumber {
		dec.UseNumber()
	}
	err := dec.Decode(&out)
	return out, err
}
