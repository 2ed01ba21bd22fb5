//go:build !cgo

package complexity

// NewEstimator returns a pattern-only estimator; tree-sitter needs cgo.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// TreeSitterAvailable reports whether this build parses with tree-sitter.
func TreeSitterAvailable() bool {
	return false
}
