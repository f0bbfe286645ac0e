package lantern

import "fmt"

// MalformedFileError reports a dungeon file whose embedded JSON payload
// could not be located or parsed. The file is rejected whole; no partial
// state is applied.
type MalformedFileError struct {
	Reason string
	Err    error
}

func (e *MalformedFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed dungeon file: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed dungeon file: %s", e.Reason)
}

func (e *MalformedFileError) Unwrap() error { return e.Err }

// UnsupportedVersionError reports a dungeon document whose version field is
// not 1. The load is abandoned; previously rendered state is untouched.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported dungeon version %d (want 1)", e.Version)
}

// DuplicateEntityError reports an attempt to add a live token whose id is
// already present in the compositor. Instance ids are unique, so this
// indicates a caller bug rather than bad data.
type DuplicateEntityError struct {
	ID string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %q already exists on the display", e.ID)
}

// MissingNodeError reports a child id that is absent from the document's
// node map. Rasterization aborts the current pass when this happens, making
// broken references visible instead of rendering an incomplete scene.
type MissingNodeError struct {
	ID string
}

func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("node %q referenced but not present in document", e.ID)
}

// ImageLoadError reports a token or background image that failed to load.
// The affected token is omitted from the batch; rendering continues.
type ImageLoadError struct {
	URI string
	Err error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %q: %v", e.URI, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }
