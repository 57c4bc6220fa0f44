package jmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultSessionURL is the Fastmail session discovery endpoint.
const DefaultSessionURL = "https://api.fastmail.com/jmap/session"

// Session holds the URLs and account discovered from the session endpoint.
type Session struct {
	AccountID   string
	APIURL      string
	UploadURL   string
	DownloadURL string
}

// Client talks to one JMAP account. Create a fresh one per logical
// operation via Open.
type Client struct {
	session    Session
	username   string
	httpClient *http.Client
}

// Open fetches the session document and returns a ready client.
// A non-2xx session response is returned as *AuthError.
func Open(ctx context.Context, username, token, sessionURL string) (*Client, error) {
	if sessionURL == "" {
		sessionURL = DefaultSessionURL
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = 60 * time.Second

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sessionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{Status: resp.StatusCode}
	}

	var doc struct {
		PrimaryAccounts map[string]string `json:"primaryAccounts"`
		APIURL          string            `json:"apiUrl"`
		UploadURL       string            `json:"uploadUrl"`
		DownloadURL     string            `json:"downloadUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}

	accountID := doc.PrimaryAccounts[CapMail]
	if accountID == "" {
		return nil, fmt.Errorf("session has no primary mail account")
	}

	return &Client{
		session: Session{
			AccountID:   accountID,
			APIURL:      doc.APIURL,
			UploadURL:   doc.UploadURL,
			DownloadURL: doc.DownloadURL,
		},
		username:   username,
		httpClient: httpClient,
	}, nil
}

// AccountID returns the primary mail account id.
func (c *Client) AccountID() string {
	return c.session.AccountID
}

// Invocation is one method call in a request, serialized as the
// [name, args, callId] triple.
type Invocation struct {
	Method string
	Args   interface{}
	CallID string
}

// MarshalJSON implements json.Marshaler for Invocation
func (inv Invocation) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]interface{}{inv.Method, inv.Args, inv.CallID})
}

// Request accumulates an ordered batch of method calls. Labels key the
// responses; creation ids name not-yet-created objects inside set calls.
type Request struct {
	calls     []Invocation
	labels    map[string]bool
	creations map[string]bool
	err       error
}

// NewRequest returns an empty batch.
func NewRequest() *Request {
	return &Request{
		labels:    make(map[string]bool),
		creations: make(map[string]bool),
	}
}

// Add appends a call under the given label. An empty label is
// auto-generated from the call position. The label is returned so it can
// be used to decode the matching response.
func (r *Request) Add(method string, args interface{}, label string) string {
	if label == "" {
		label = fmt.Sprintf("c%d", len(r.calls))
	}
	if r.labels[label] && r.err == nil {
		r.err = fmt.Errorf("duplicate call label %q", label)
	}
	r.labels[label] = true
	r.calls = append(r.calls, Invocation{Method: method, Args: args, CallID: label})
	return label
}

// Ref returns a back-reference to a previously added call. Referencing a
// label that has not been added yet poisons the request; Invoke reports
// the error instead of sending a malformed batch.
func (r *Request) Ref(label string) string {
	if !r.labels[label] && r.err == nil {
		r.err = fmt.Errorf("back-reference to %q before its call was added", label)
	}
	return "#" + label
}

// RecordCreation registers a client-chosen creation id used inside a set
// call, so later calls in the batch can reference the created object.
func (r *Request) RecordCreation(id string) {
	r.creations[id] = true
}

// CreationRef returns a reference to an object created earlier in the
// same batch. Unknown ids poison the request like Ref.
func (r *Request) CreationRef(id string) string {
	if !r.creations[id] && r.err == nil {
		r.err = fmt.Errorf("reference to creation id %q before its set call was added", id)
	}
	return "#" + id
}

type rawInvocation [3]json.RawMessage

// Response holds the ordered method responses of one API request.
type Response struct {
	invocations []rawInvocation
}

// Decode unmarshals the arguments of the response labelled label into v.
// If the server answered that call with an error method, the decoded
// *MethodError is returned instead.
func (r *Response) Decode(label string, v interface{}) error {
	for _, inv := range r.invocations {
		var name, callID string
		if err := json.Unmarshal(inv[0], &name); err != nil {
			return fmt.Errorf("failed to parse method name: %w", err)
		}
		if err := json.Unmarshal(inv[2], &callID); err != nil {
			return fmt.Errorf("failed to parse call id: %w", err)
		}
		if callID != label {
			continue
		}
		if name == "error" {
			var methodErr MethodError
			if err := json.Unmarshal(inv[1], &methodErr); err != nil {
				return fmt.Errorf("failed to parse method error: %w", err)
			}
			return &methodErr
		}
		if err := json.Unmarshal(inv[1], v); err != nil {
			return fmt.Errorf("failed to parse %s response: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("no response labelled %q", label)
}

// Invoke posts the batch as a single API request and returns the parsed
// responses. A non-2xx status is returned as *RequestError.
func (c *Client) Invoke(ctx context.Context, req *Request) (*Response, error) {
	if req.err != nil {
		return nil, req.err
	}
	if len(req.calls) == 0 {
		return nil, fmt.Errorf("empty request")
	}

	payload := struct {
		Using       []string     `json:"using"`
		MethodCalls []Invocation `json:"methodCalls"`
	}{
		Using:       []string{CapCore, CapMail, CapSubmission},
		MethodCalls: req.calls,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.session.APIURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var envelope struct {
		MethodResponses []rawInvocation `json:"methodResponses"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	return &Response{invocations: envelope.MethodResponses}, nil
}
