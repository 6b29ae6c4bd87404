package apperrors

import "fmt"

// ErrNoMatch is returned when a URL is not recognized by any site extractor.
// It is non-fatal: callers typically try the next extractor or report the
// URL as unsupported.
type ErrNoMatch struct {
	URL string
}

// Error implements the error interface.
func (e *ErrNoMatch) Error() string {
	return fmt.Sprintf("no extractor matched URL %q", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrNoMatch) Is(target error) bool {
	_, ok := target.(*ErrNoMatch)
	return ok
}

// NewNoMatchError creates a new ErrNoMatch for the given URL.
func NewNoMatchError(url string) *ErrNoMatch {
	return &ErrNoMatch{URL: url}
}

// ErrMissingData is returned when an expected key or structure is absent
// from an otherwise successfully fetched page. Fatal for the current
// extraction.
type ErrMissingData struct {
	ItemID string
	What   string
}

// Error implements the error interface.
func (e *ErrMissingData) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s: expected %s is missing", e.ItemID, e.What)
	}
	return fmt.Sprintf("expected %s is missing", e.What)
}

// Is allows for error checking with errors.Is().
func (e *ErrMissingData) Is(target error) bool {
	_, ok := target.(*ErrMissingData)
	return ok
}

// NewMissingDataError creates a new ErrMissingData.
func NewMissingDataError(itemID, what string) *ErrMissingData {
	return &ErrMissingData{ItemID: itemID, What: what}
}

// ErrAuthRequired is returned when a gated operation is attempted without a
// prior successful login. The Hint tells the operator how to supply
// credentials.
type ErrAuthRequired struct {
	ItemID string
	Hint   string
}

// Error implements the error interface.
func (e *ErrAuthRequired) Error() string {
	msg := "authentication required"
	if e.ItemID != "" {
		msg = fmt.Sprintf("%s: %s", e.ItemID, msg)
	}
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Is allows for error checking with errors.Is().
func (e *ErrAuthRequired) Is(target error) bool {
	_, ok := target.(*ErrAuthRequired)
	return ok
}

// NewAuthRequiredError creates a new ErrAuthRequired.
func NewAuthRequiredError(itemID, hint string) *ErrAuthRequired {
	return &ErrAuthRequired{ItemID: itemID, Hint: hint}
}

// ErrDrmProtected is returned when content exists but no playable format
// could be extracted because of rights management. Reported distinctly from
// ErrMissingData so operators can tell "nothing to extract" from "blocked".
type ErrDrmProtected struct {
	ItemID string
}

// Error implements the error interface.
func (e *ErrDrmProtected) Error() string {
	return fmt.Sprintf("%s: content is DRM protected, no playable formats can be extracted", e.ItemID)
}

// Is allows for error checking with errors.Is().
func (e *ErrDrmProtected) Is(target error) bool {
	_, ok := target.(*ErrDrmProtected)
	return ok
}

// NewDrmProtectedError creates a new ErrDrmProtected for the given item.
func NewDrmProtectedError(itemID string) *ErrDrmProtected {
	return &ErrDrmProtected{ItemID: itemID}
}
