package domain

// ViewKind tells the rendering collaborator what a ViewResult carries.
type ViewKind string

const (
	// ViewRaw carries the model itself.
	ViewRaw ViewKind = "raw"
	// ViewNamed carries a view name bound to the model.
	ViewNamed ViewKind = "named"
	// ViewValue carries the value returned by a result function.
	ViewValue ViewKind = "value"
)

// ViewSelector is the view-selection strategy applied after an execution.
// Any field may be left empty.
type ViewSelector struct {
	SuccessView string
	ErrorView   string
	SuccessFunc func(*Model) any
	ErrorFunc   func(*Model) any
}

// ViewResult is what a pipeline hands to the rendering collaborator.
type ViewResult struct {
	Kind  ViewKind
	Name  string
	Model *Model
	Value any
}

// SelectView picks the view for m. The decision order is fixed:
// a named view wins over a function result, and the error branch is checked before the success branch.
func SelectView(isError bool, sel *ViewSelector, m *Model) ViewResult {
	switch {
	case sel == nil:
		return ViewResult{Kind: ViewRaw, Model: m}
	case isError && sel.ErrorView != "":
		return ViewResult{Kind: ViewNamed, Name: sel.ErrorView, Model: m}
	case isError && sel.ErrorFunc != nil:
		return ViewResult{Kind: ViewValue, Value: sel.ErrorFunc(m), Model: m}
	case sel.SuccessView != "":
		return ViewResult{Kind: ViewNamed, Name: sel.SuccessView, Model: m}
	case sel.SuccessFunc != nil:
		return ViewResult{Kind: ViewValue, Value: sel.SuccessFunc(m), Model: m}
	default:
		return ViewResult{Kind: ViewRaw, Model: m}
	}
}
