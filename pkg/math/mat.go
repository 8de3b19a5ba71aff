package math

// Matrices in this package are stored in row-major order:
//
//	Mat3 layout: [m0 m1 m2]
//	             [m3 m4 m5]
//	             [m6 m7 m8]
//
// Binary tile data stores matrices column-major. Use the FromColumnMajor
// constructors and ColumnMajor methods to convert at the buffer boundary.

// Mat2 is a 2x2 matrix in row-major order.
type Mat2 [4]float64

// Mat3 is a 3x3 matrix in row-major order.
type Mat3 [9]float64

// Mat4 is a 4x4 matrix in row-major order.
type Mat4 [16]float64

// transpose copies an n*n matrix from src into dst with rows and columns
// swapped. src and dst must not alias.
func transpose(dst, src []float64, n int) {
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			dst[c*n+r] = src[r*n+c]
		}
	}
}

// Mat2FromColumnMajor builds a Mat2 from 4 components in column-major order.
func Mat2FromColumnMajor(cm []float64) Mat2 {
	var m Mat2
	transpose(m[:], cm[:4], 2)
	return m
}

// Mat3FromColumnMajor builds a Mat3 from 9 components in column-major order.
func Mat3FromColumnMajor(cm []float64) Mat3 {
	var m Mat3
	transpose(m[:], cm[:9], 3)
	return m
}

// Mat4FromColumnMajor builds a Mat4 from 16 components in column-major order.
func Mat4FromColumnMajor(cm []float64) Mat4 {
	var m Mat4
	transpose(m[:], cm[:16], 4)
	return m
}

// At returns the element at row r, column c.
func (m Mat2) At(r, c int) float64 { return m[r*2+c] }

// At returns the element at row r, column c.
func (m Mat3) At(r, c int) float64 { return m[r*3+c] }

// At returns the element at row r, column c.
func (m Mat4) At(r, c int) float64 { return m[r*4+c] }

// Transpose returns the transposed matrix.
func (m Mat2) Transpose() Mat2 {
	var t Mat2
	transpose(t[:], m[:], 2)
	return t
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	var t Mat3
	transpose(t[:], m[:], 3)
	return t
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var t Mat4
	transpose(t[:], m[:], 4)
	return t
}

// ColumnMajor returns the components in column-major order.
func (m Mat2) ColumnMajor() []float64 {
	cm := make([]float64, 4)
	transpose(cm, m[:], 2)
	return cm
}

// ColumnMajor returns the components in column-major order.
func (m Mat3) ColumnMajor() []float64 {
	cm := make([]float64, 9)
	transpose(cm, m[:], 3)
	return cm
}

// ColumnMajor returns the components in column-major order.
func (m Mat4) ColumnMajor() []float64 {
	cm := make([]float64, 16)
	transpose(cm, m[:], 4)
	return cm
}
