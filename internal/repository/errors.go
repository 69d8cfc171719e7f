package repository

import "errors"

var (
	// ErrItemNotFound indicates the catalogue item does not exist
	ErrItemNotFound = errors.New("catalogue item not found")

	// ErrReportNotFound indicates no report is stored for the item
	ErrReportNotFound = errors.New("report not found")

	// ErrPermissionConflict indicates the row belongs to another user
	ErrPermissionConflict = errors.New("owned by another user")

	// ErrMissingActor indicates a write was attempted without an actor id
	ErrMissingActor = errors.New("actor id is required")

	// ErrEmptyQuery indicates a search was attempted with a blank query
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrUnsupportedDriver indicates an unknown database driver name
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
