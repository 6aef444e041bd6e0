package storage

import (
	"errors"

	"github.com/rasto/lcmc-sub002/pkg/types"
)

// ErrNotFound is returned when a stored entry does not exist
var ErrNotFound = errors.New("not found")

// Store defines the interface for console session storage
type Store interface {
	// Resources, stored with their children and committed parameters
	SaveResource(rsc *types.Resource) error
	GetResource(id string) (*types.Resource, error)
	ListResources() ([]*types.Resource, error)
	DeleteResource(id string) error

	// Placeholders
	SavePlaceholder(ph *types.PlaceholderState) error
	GetPlaceholder(id string) (*types.PlaceholderState, error)
	ListPlaceholders() ([]*types.PlaceholderState, error)
	DeletePlaceholder(id string) error

	// Journal of applied CRM command batches, in commit order
	AppendJournal(rec *types.JournalRecord) error
	ListJournal() ([]*types.JournalRecord, error)

	// Utility
	Close() error
}
