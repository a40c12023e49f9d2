package fat

import "errors"

// Sentinel errors returned by directory operations. Wrap with fmt.Errorf
// and %w to add path context; compare with errors.Is.
var (
	// ErrNotFound is returned when a path component does not exist.
	ErrNotFound = errors.New("fat: not found")

	// ErrInvalidInput is returned when a long name fails validation,
	// or is empty or over-long.
	ErrInvalidInput = errors.New("fat: invalid name")

	// ErrAlreadyExists is returned when a rename destination is already
	// occupied, or the short-name generator has exhausted every
	// collision-resolution slot.
	ErrAlreadyExists = errors.New("fat: already exists")

	// ErrNotDirectory is returned when a path component that must be a
	// directory resolves to a regular file.
	ErrNotDirectory = errors.New("fat: not a directory")

	// ErrIsDirectory is returned when an operation that requires a file
	// resolves to a directory.
	ErrIsDirectory = errors.New("fat: is a directory")

	// ErrNotEmpty is returned by remove when a directory still holds
	// entries other than "." and "..".
	ErrNotEmpty = errors.New("fat: directory not empty")

	// ErrReadOnly is returned when a write is attempted against a
	// volume mounted with ModeReadOnly.
	ErrReadOnly = errors.New("fat: volume is read-only")

	// ErrNoSpace is returned when a directory needs more slots than the
	// FAT12/16 fixed root region has room for.
	ErrNoSpace = errors.New("fat: root directory is full")
)
