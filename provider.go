package rhi

import (
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ConstantBufferDataProvider supplies the bytes of one constant buffer.
type ConstantBufferDataProvider interface {
	DataSizeInBytes() int
	SetData(cb ConstantBuffer) error
}

// VersionedProvider is a provider that reports when its data changes.
// Global inputs backed by one are uploaded only after a change.
type VersionedProvider interface {
	ConstantBufferDataProvider
	Version() uint64
}

// DynamicDataProvider holds a fixed-size value and encodes it little-endian.
// T must have a fixed binary size (see encoding/binary.Size).
type DynamicDataProvider[T any] struct {
	data    T
	version uint64
}

// NewDynamicDataProvider returns a provider holding v.
func NewDynamicDataProvider[T any](v T) *DynamicDataProvider[T] {
	return &DynamicDataProvider[T]{data: v, version: 1}
}

// Data returns the current value.
func (p *DynamicDataProvider[T]) Data() T { return p.data }

// Set replaces the value and bumps the version.
func (p *DynamicDataProvider[T]) Set(v T) {
	p.data = v
	p.version++
}

func (p *DynamicDataProvider[T]) Version() uint64 { return p.version }

func (p *DynamicDataProvider[T]) DataSizeInBytes() int {
	return binary.Size(p.data)
}

func (p *DynamicDataProvider[T]) SetData(cb ConstantBuffer) error {
	buf, err := binary.Append(nil, binary.LittleEndian, p.data)
	if err != nil {
		return fmt.Errorf("rhi: encode %T: %w", p.data, err)
	}
	return cb.SetData(buf, 0)
}

// MatrixProvider is a provider of one 4x4 matrix.
type MatrixProvider = DynamicDataProvider[mgl32.Mat4]

// NewMatrixProvider returns a provider holding m.
func NewMatrixProvider(m mgl32.Mat4) *MatrixProvider {
	return NewDynamicDataProvider(m)
}

// NewIdentityProvider returns a matrix provider holding the identity.
func NewIdentityProvider() *MatrixProvider {
	return NewMatrixProvider(mgl32.Ident4())
}
