// Package fastview pushes server-side view updates to browsers: a data model is converted
// to a view-model, broadcast to one or more views, and each view emits element updates
// that a small script applies to the page.
package fastview

import (
	"html/template"
)

// EleUpdate is an element id and the operations to apply to it.
type EleUpdate struct {
	EleId string
	// Op keys are attribute names, except the reserved key "textContent" which sets the
	// element's text.
	Ops []Op
}

// Op is a key and value, e.g. an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a server-side view: a template for its initial form and a channel of
// updates to it.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view's template to parent, inheriting its func-map, and returns the
	// name of the defined template.
	Parse(*template.Template) (string, error)
}
