package service

import "errors"

// ErrNoRecipients is returned when a reply resolves to an empty
// recipient list. No provider call has been made at that point.
var ErrNoRecipients = errors.New("no recipients resolved")
