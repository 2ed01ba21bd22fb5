//go:build cgo

package complexity

// NewEstimator returns an estimator backed by tree-sitter.
func NewEstimator() *Estimator {
	return &Estimator{tree: newTreeEstimator()}
}

// TreeSitterAvailable reports whether this build parses with tree-sitter.
func TreeSitterAvailable() bool {
	return true
}
