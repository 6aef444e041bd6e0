// Package editable tracks the validity and the unsaved state of the
// parameters of an editable resource, and derives the apply/revert
// enablement from them.
//
// Invalid values never produce errors: a failing parameter gets its
// wrong-value flag set and makes CheckFieldsCorrect return false.
package editable
