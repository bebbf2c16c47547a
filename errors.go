package rhi

import (
	"errors"
	"fmt"

	"github.com/gogpu/rhi/shader"
)

// Sentinel errors returned by the factory and the render context.
var (
	// ErrUnsupported is the root of every UnsupportedError.
	ErrUnsupported = errors.New("rhi: capability not supported by backend")

	// ErrShaderNotFound is returned when no loader in the chain resolves a shader name.
	ErrShaderNotFound = shader.ErrNotFound

	// ErrInvalidDimensions is returned for zero or negative sizes.
	ErrInvalidDimensions = errors.New("rhi: invalid dimensions")

	// ErrInvalidVertexInputs is returned when a material declares no vertex
	// buffers or more than two.
	ErrInvalidVertexInputs = errors.New("rhi: material needs one or two vertex inputs")

	// ErrInputLayoutMismatch is returned when the declared vertex inputs do not
	// cover the attributes the vertex shader consumes.
	ErrInputLayoutMismatch = errors.New("rhi: vertex input layout does not match shader")

	// ErrTooManyTextures is returned when texture inputs exceed MaxTextureSlots on a stage.
	ErrTooManyTextures = errors.New("rhi: too many texture inputs for a shader stage")

	// ErrOutOfRange is returned for reads or writes outside a resource.
	ErrOutOfRange = errors.New("rhi: offset or length out of range")

	// ErrBackendMismatch is returned when a handle created by one backend is
	// passed to another.
	ErrBackendMismatch = errors.New("rhi: resource belongs to a different backend")

	// ErrNoBackend is returned when no backend is registered under a name.
	ErrNoBackend = errors.New("rhi: no backend available")
)

// IllegalValueError reports a value outside a closed enumeration. It is
// raised with panic by every conversion table and is never returned as an
// ordinary error: reaching it means a switch is missing a case.
type IllegalValueError struct {
	Type  string
	Value int64
}

func (e *IllegalValueError) Error() string {
	return fmt.Sprintf("rhi: illegal %s value %d", e.Type, e.Value)
}

// IllegalValue builds the fault for v. Callers panic with the result:
//
//	default:
//		panic(rhi.IllegalValue(f))
func IllegalValue[T ~uint8 | ~uint16 | ~uint32 | ~int | ~int32](v T) *IllegalValueError {
	return &IllegalValueError{Type: fmt.Sprintf("%T", v), Value: int64(v)}
}

// UnsupportedError describes a feature the active backend cannot provide.
type UnsupportedError struct {
	Backend Backend
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("rhi: %s backend does not support %s", e.Backend, e.Feature)
}

// Unwrap lets errors.Is match ErrUnsupported.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Unsupported returns an UnsupportedError for feature on backend b.
func Unsupported(b Backend, feature string) error {
	return &UnsupportedError{Backend: b, Feature: feature}
}
