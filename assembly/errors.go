package assembly

import "errors"

var (
	// ErrNotAssembled: an operation needed the matrix before Assemble ran.
	ErrNotAssembled = errors.New("form has not been assembled")
	// ErrStructuralMismatch: a local matrix does not match its DOF list lengths.
	ErrStructuralMismatch = errors.New("local matrix dimensions do not match DOF lists")
	// ErrMalformedAssembly: the finalized matrix holds a non-finite value.
	ErrMalformedAssembly = errors.New("assembled matrix holds non-finite values")
	// ErrProlongationShape: a prolongation row count does not match the operator.
	ErrProlongationShape = errors.New("prolongation shape does not match operator")
	// ErrMeshMismatch: trial and test spaces live on different meshes.
	ErrMeshMismatch = errors.New("trial and test spaces are defined on different meshes")
	// ErrAlreadyProjected: the form was already reduced to the conforming basis.
	ErrAlreadyProjected = errors.New("form is already projected onto the conforming basis")
)
