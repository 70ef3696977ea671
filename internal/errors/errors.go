package errors

import "fmt"

// ErrLinkNotFound is returned when no live link exists for an alias.
// Expired links surface as this error as well.
type ErrLinkNotFound struct {
	Alias string
}

func (e *ErrLinkNotFound) Error() string {
	return fmt.Sprintf("no link found for '%s'", e.Alias)
}

// ErrAliasTaken is returned when an alias is already claimed by a live link.
// Custom aliases never silently regenerate; the caller gets this error.
type ErrAliasTaken struct {
	Alias string
}

func (e *ErrAliasTaken) Error() string {
	return fmt.Sprintf("alias '%s' is already taken", e.Alias)
}

// ErrAliasExhausted is returned when the bounded generate-and-insert policy
// ran out of attempts without finding a free alias.
type ErrAliasExhausted struct {
	Attempts int
}

func (e *ErrAliasExhausted) Error() string {
	return fmt.Sprintf("could not allocate a unique alias after %d attempts", e.Attempts)
}

// ErrInvalidURL is returned when a target URL does not match the accepted
// URL grammar.
type ErrInvalidURL struct {
	URL string
}

func (e *ErrInvalidURL) Error() string {
	return fmt.Sprintf("invalid URL: %s", e.URL)
}

// ErrInvalidExpiry is returned when an expiry date does not parse as
// "DD.MM.YYYY HH:MM".
type ErrInvalidExpiry struct {
	Value string
}

func (e *ErrInvalidExpiry) Error() string {
	return fmt.Sprintf("invalid expiry date '%s', expected format DD.MM.YYYY HH:MM", e.Value)
}

// ErrForbidden is returned when a caller tries to mutate a link they do not
// own.
type ErrForbidden struct {
	Alias string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("not allowed to modify link '%s'", e.Alias)
}

// ErrUnauthorized is returned when an operation requires a resolved caller
// and none could be established from the request credentials.
type ErrUnauthorized struct{}

func (e *ErrUnauthorized) Error() string {
	return "authentication required"
}

// ErrEmailTaken is returned on signup when the email is already registered.
type ErrEmailTaken struct {
	Email string
}

func (e *ErrEmailTaken) Error() string {
	return fmt.Sprintf("user with email '%s' already exists", e.Email)
}

// ErrInvalidCredentials is returned on login when the email/password pair
// does not match a registered user.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "incorrect email or password"
}
