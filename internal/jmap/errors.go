package jmap

import "fmt"

// AuthError reports a rejected session request.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session request rejected (status %d)", e.Status)
}

// RequestError reports a transport-level failure of an API request.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}

// MethodError is a per-call application error returned in place of a
// method response.
type MethodError struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func (e *MethodError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("method error: %s", e.Type)
	}
	return fmt.Sprintf("method error: %s (%s)", e.Type, e.Description)
}

// UpdateError reports a per-message rejection of an Email/set update.
type UpdateError struct {
	ID  string
	Err SetError
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update of %s rejected: %s", e.ID, e.Err)
}

// SendRejectedError reports which half of a create+submit batch failed.
// Stage is "create" when the draft was rejected and "submit" when the
// draft was created but the submission was refused.
type SendRejectedError struct {
	Stage string
	Err   SetError
}

func (e *SendRejectedError) Error() string {
	return fmt.Sprintf("send failed at %s stage: %s", e.Stage, e.Err)
}
