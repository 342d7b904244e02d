//go:build !js_eval

package tokentree

// NewJSEvaluator returns nil in builds without the js_eval tag. NewEvaluator
// reports ErrEngineUnavailable in that case.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}
