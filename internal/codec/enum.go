package codec

import (
	"fmt"

	"tablekit/internal/dberr"
)

// Enum stores a closed set of variants as short text tags.
//
// Every declared variant must carry a distinct, non-empty tag. Validate checks
// this and the registry refuses an Enum that fails it, so an incomplete mapping
// is reported while tables are declared rather than when a row is read.
type Enum[T comparable] struct {
	variants []T
	tags     map[T]string
	byTag    map[string]T
}

// NewEnum declares a sum-type codec over variants using tags.
func NewEnum[T comparable](tags map[T]string, variants ...T) *Enum[T] {
	e := &Enum[T]{
		variants: variants,
		tags:     make(map[T]string, len(tags)),
		byTag:    make(map[string]T, len(tags)),
	}
	for v, tag := range tags {
		e.tags[v] = tag
		e.byTag[tag] = v
	}
	return e
}

// Variants returns the declared variants in declaration order.
func (e *Enum[T]) Variants() []T {
	out := make([]T, len(e.variants))
	copy(out, e.variants)
	return out
}

// Validate checks the mapping is total and injective over the declared variants.
func (e *Enum[T]) Validate() error {
	subject := fmt.Sprintf("enum %T", *new(T))
	if len(e.variants) == 0 {
		return dberr.Configf(subject, "no variants declared")
	}
	seen := make(map[string]T, len(e.variants))
	declared := make(map[T]bool, len(e.variants))
	for _, v := range e.variants {
		if declared[v] {
			return dberr.Configf(subject, "variant %v declared twice", v)
		}
		declared[v] = true
		tag, ok := e.tags[v]
		if !ok || tag == "" {
			return dberr.Configf(subject, "variant %v has no tag", v)
		}
		if other, dup := seen[tag]; dup {
			return dberr.Configf(subject, "variants %v and %v share tag %q", other, v, tag)
		}
		seen[tag] = v
	}
	for v := range e.tags {
		if !declared[v] {
			return dberr.Configf(subject, "tag given for undeclared variant %v", v)
		}
	}
	return nil
}

func (e *Enum[T]) Kind() Kind { return Text }

func (e *Enum[T]) Encode(v T) (any, error) {
	tag, ok := e.tags[v]
	if !ok {
		return nil, &dberr.EncodeError{Value: v, Err: fmt.Errorf("not a declared variant of %T", v)}
	}
	return tag, nil
}

func (e *Enum[T]) Decode(raw any) (T, error) {
	var zero T
	tag, err := asString(raw)
	if err != nil {
		return zero, err
	}
	v, ok := e.byTag[tag]
	if !ok {
		return zero, &dberr.DecodeError{Kind: dberr.UnknownVariant, Raw: tag}
	}
	return v, nil
}
