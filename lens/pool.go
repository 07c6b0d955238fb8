package lens

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// ValueKind identifies what a pool reference resolved to.
type ValueKind uint8

const (
	// ValueUndefined is the result of resolving a missing reference.
	ValueUndefined ValueKind = iota
	// ValueNull is the result of resolving a null reference.
	ValueNull
	ValueInt
	ValueString
)

// Value is a resolved pool reference.
type Value struct {
	kind ValueKind
	i    int64
	s    string
}

// Kind reports which pool (if any) the value came from.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNull reports if the reference was null or undefined.
func (v Value) IsNull() bool {
	return v.kind == ValueNull || v.kind == ValueUndefined
}

// Int returns the integer value, ok is false when the value is not an integer.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == ValueInt
}

// Text returns the string value, ok is false when the value is not a string.
func (v Value) Text() (string, bool) {
	return v.s, v.kind == ValueString
}

func (v Value) String() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueString:
		return v.s
	case ValueNull:
		return "null"
	default:
		return "undefined"
	}
}

// Undefined is the reference used for a value that is absent from the encoding, resolving to ValueUndefined.
var Undefined = undefinedRef{}

type undefinedRef struct{}

// ValuePool resolves signed references against the integer and string pools. String entries are decoded on first
// use and memoized, the memo table is the only state mutated after construction and is safe for concurrent use.
type ValuePool struct {
	raw      []string
	integers []int64
	codec    *stringCodec
	memo     []string
	decoded  []bool
	locks    *stripedMutex
	decodes  atomic.Int64
}

// NewValuePool creates a pool over the raw payload pools. The provided slices are not modified.
func NewValuePool(strings []string, integers []int64, opts PoolOptions) (*ValuePool, error) {
	codec, err := newStringCodec(opts)
	if err != nil {
		return nil, err
	}
	return &ValuePool{
		raw:      strings,
		integers: integers,
		codec:    codec,
		memo:     make([]string, len(strings)),
		decoded:  make([]bool, len(strings)),
		locks:    newDefaultStripedMutex(),
	}, nil
}

// Resolve resolves a reference as found in the structural tree: nil is null, Undefined is undefined, integer
// values below zero select from the integer pool and others from the string pool.
func (p *ValuePool) Resolve(ref any) (Value, error) {
	switch ref.(type) {
	case nil:
		return Value{kind: ValueNull}, nil
	case undefinedRef:
		return Value{kind: ValueUndefined}, nil
	}
	id, ok := asRef(ref)
	if !ok {
		return Value{}, fmt.Errorf("%w: %T is not a reference", ErrMalformedReference, ref)
	}
	return p.ResolveRef(id)
}

// ResolveRef resolves a non-null reference.
func (p *ValuePool) ResolveRef(ref int64) (Value, error) {
	if ref < 0 {
		i, err := p.Integer(int(-1 - ref))
		return Value{kind: ValueInt, i: i}, err
	}
	s, err := p.Text(int(ref))
	return Value{kind: ValueString, s: s}, err
}

// Integer returns the integer pool entry at index.
func (p *ValuePool) Integer(index int) (int64, error) {
	if index < 0 || index >= len(p.integers) {
		return 0, fmt.Errorf("%w: integer pool index %d (size %d)", ErrMalformedReference, index, len(p.integers))
	}
	return p.integers[index], nil
}

// Text returns the decoded string pool entry at index, decoding it on first use.
func (p *ValuePool) Text(index int) (string, error) {
	if index < 0 || index >= len(p.raw) {
		return "", fmt.Errorf("%w: string pool index %d (size %d)", ErrMalformedReference, index, len(p.raw))
	}

	mu := p.locks.Lock(index)
	defer mu.Unlock()

	if p.decoded[index] {
		return p.memo[index], nil
	}
	raw := p.raw[index]
	var text string
	if len(raw) > 0 && raw[0] == decodedMarker {
		text = raw[1:]
	} else {
		var err error
		p.decodes.Add(1)
		if text, err = p.codec.decode(raw); err != nil {
			return "", fmt.Errorf("%w: string pool index %d: %w", ErrDecodeFailure, index, err)
		}
	}
	p.memo[index] = text
	p.decoded[index] = true
	return text, nil
}

// Decodes returns how many raw string entries have been decompressed.
func (p *ValuePool) Decodes() int64 {
	return p.decodes.Load()
}

// Len returns the sizes of the string and integer pools.
func (p *ValuePool) Len() (stringCount, integerCount int) {
	return len(p.raw), len(p.integers)
}

// DecodeAll decodes every string entry concurrently so later resolution is a memo lookup.
func (p *ValuePool) DecodeAll(ctx context.Context) error {
	errGroup := ErrGroupLimitCPU()
	for i := range p.raw {
		if err := ctx.Err(); err != nil {
			break
		}
		errGroup.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := p.Text(i)
			return err
		})
	}
	if err := errGroup.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// asRef converts a decoded numeric value into a reference, accepting the representations produced by the JSON
// and msgpack decoders.
func asRef(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return asRef(float64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
