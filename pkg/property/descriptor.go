package property

import "fmt"

// Descriptor locates one binary property inside a buffer. Values for
// consecutive features are packed back to back starting at ByteOffset.
type Descriptor struct {
	Name          string
	ByteOffset    int
	ComponentType ComponentType
	Shape         Shape
}

// Validate checks that the offset, component type and shape are all present.
func (d Descriptor) Validate() error {
	if d.ByteOffset < 0 {
		return fmt.Errorf("%w: %q has negative byteOffset %d", ErrInvalidDescriptor, d.Name, d.ByteOffset)
	}
	if !d.ComponentType.Valid() {
		return fmt.Errorf("%w: %q does not specify a componentType", ErrInvalidDescriptor, d.Name)
	}
	if !d.Shape.Valid() {
		return fmt.Errorf("%w: %q does not specify a type", ErrInvalidDescriptor, d.Name)
	}
	return nil
}

// ByteWidth returns the number of bytes one feature's value occupies.
func (d Descriptor) ByteWidth() int {
	return d.ComponentType.Size() * d.Shape.ComponentCount()
}

// Offset returns the byte offset of the value for the given feature index.
func (d Descriptor) Offset(featureIndex int) int {
	return d.ByteOffset + featureIndex*d.ByteWidth()
}

// ByteLength returns the total bytes occupied by featuresLength values.
func (d Descriptor) ByteLength(featuresLength int) int {
	return featuresLength * d.ByteWidth()
}

// Fits reports whether featuresLength values starting at ByteOffset lie
// inside a buffer of bufLen bytes.
func (d Descriptor) Fits(bufLen, featuresLength int) bool {
	return InBounds(bufLen, d.ByteOffset, featuresLength, d.ByteWidth())
}

// Read decodes the value for the given feature index.
func (d Descriptor) Read(buf []byte, featureIndex int) (Value, error) {
	return Read(buf, d.Offset(featureIndex), d.ComponentType, d.Shape)
}

// Write encodes the value for the given feature index.
func (d Descriptor) Write(buf []byte, featureIndex int, v Value) error {
	return Write(buf, d.Offset(featureIndex), d.ComponentType, d.Shape, v)
}
