package view

import "avatarlab.app/studio/internal/model"

// Transition is a pure description of a change to the displayed collection.
// The reconciler emits transitions instead of mutating ambient UI state, so
// any presentation layer (reducer, observable store, websocket gateway) can
// apply them.
type Transition interface {
	transition()
}

// Insert adds an image at the front of the collection.
type Insert struct {
	Image      model.Image
	TotalCount int64
}

// Patch updates mutable flags of an image already in the collection.
type Patch struct {
	Image model.Image
}

// Refresh replaces the representation of an image that stayed in view,
// e.g. after a move within the same visible scope.
type Refresh struct {
	Image model.Image
}

// Remove drops an image from the collection. CloseDetail is set when the
// removed image was the one open in the detail/lightbox view.
type Remove struct {
	ID          int64
	TotalCount  int64
	CloseDetail bool
}

func (Insert) transition()  {}
func (Patch) transition()   {}
func (Refresh) transition() {}
func (Remove) transition()  {}
