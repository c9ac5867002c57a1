// Package batch implements the per-item fold shared by the analysis,
// embedding, and distribution stages: apply an operation to every item
// in order, never abort on a single failure, and keep one result per
// item so callers can report successes and diagnostics side by side.
package batch

// Result is the outcome of one item's operation.
type Result[R any] struct {
	Name  string
	Value R
	Err   error
}

// Diagnostic is a per-item failure message.
type Diagnostic struct {
	Name    string `json:"filename"`
	Message string `json:"message"`
}

// Run applies op to every item in input order. One item's failure never
// stops the remaining items; the returned slice always has one entry
// per input item, in the same order.
func Run[T, R any](items []T, name func(T) string, op func(T) (R, error)) []Result[R] {
	results := make([]Result[R], 0, len(items))
	for _, item := range items {
		value, err := op(item)
		results = append(results, Result[R]{Name: name(item), Value: value, Err: err})
	}
	return results
}

// Split separates results into succeeded values and failure diagnostics,
// both preserving input order.
func Split[R any](results []Result[R]) ([]R, []Diagnostic) {
	var values []R
	var diags []Diagnostic
	for _, r := range results {
		if r.Err != nil {
			diags = append(diags, Diagnostic{Name: r.Name, Message: r.Err.Error()})
			continue
		}
		values = append(values, r.Value)
	}
	return values, diags
}
