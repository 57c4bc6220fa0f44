package jmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type capturedCall struct {
	Method string
	Args   map[string]interface{}
	CallID string
}

func decodeCalls(t *testing.T, r *http.Request) []capturedCall {
	t.Helper()

	var body struct {
		MethodCalls []json.RawMessage `json:"methodCalls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}

	calls := make([]capturedCall, 0, len(body.MethodCalls))
	for _, raw := range body.MethodCalls {
		var triple [3]json.RawMessage
		if err := json.Unmarshal(raw, &triple); err != nil {
			t.Fatalf("failed to decode invocation: %v", err)
		}
		var call capturedCall
		if err := json.Unmarshal(triple[0], &call.Method); err != nil {
			t.Fatalf("failed to decode method name: %v", err)
		}
		if err := json.Unmarshal(triple[1], &call.Args); err != nil {
			t.Fatalf("failed to decode method args: %v", err)
		}
		if err := json.Unmarshal(triple[2], &call.CallID); err != nil {
			t.Fatalf("failed to decode call id: %v", err)
		}
		calls = append(calls, call)
	}
	return calls
}

func creationIDs(args map[string]interface{}) []string {
	create, _ := args["create"].(map[string]interface{})
	ids := make([]string, 0, len(create))
	for id := range create {
		ids = append(ids, id)
	}
	return ids
}

// sendHandler answers the identity and mailbox lookups, then lets
// onSet script the final create+submit response.
func sendHandler(t *testing.T, onSet func(w http.ResponseWriter, calls []capturedCall)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls := decodeCalls(t, r)
		switch calls[0].Method {
		case "Identity/get":
			fmt.Fprintf(w, `{"methodResponses": [["Identity/get", {"list": [{"id": "id1", "email": "me@example.com"}]}, %q]]}`, calls[0].CallID)
		case "Mailbox/get":
			fmt.Fprintf(w, `{"methodResponses": [["Mailbox/get", {"list": [
				{"id": "mb-drafts", "name": "Drafts", "role": "drafts"},
				{"id": "mb-sent", "name": "Sent", "role": "sent"}
			]}, %q]]}`, calls[0].CallID)
		case "Email/set":
			onSet(w, calls)
		default:
			t.Fatalf("unexpected method %s", calls[0].Method)
		}
	}
}

func TestSendEmail_Success(t *testing.T) {
	var setCalls []capturedCall
	client := openTestClient(t, sendHandler(t, func(w http.ResponseWriter, calls []capturedCall) {
		setCalls = calls
		draftID := creationIDs(calls[0].Args)[0]
		submitID := creationIDs(calls[1].Args)[0]
		fmt.Fprintf(w, `{"methodResponses": [
			["Email/set", {"created": {%q: {"id": "msg42"}}}, %q],
			["EmailSubmission/set", {"created": {%q: {"id": "sub1"}}}, %q]
		]}`, draftID, calls[0].CallID, submitID, calls[1].CallID)
	}))

	result, err := client.SendEmail(context.Background(), Draft{
		To:       []Address{{Email: "bob@example.com"}},
		Subject:  "Hello",
		TextBody: "Hi Bob",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.MessageID != "msg42" {
		t.Errorf("expected message id msg42, got %s", result.MessageID)
	}
	if !result.Submitted {
		t.Error("expected submitted to be true")
	}

	if len(setCalls) != 2 {
		t.Fatalf("expected create and submit in one batch, got %d calls", len(setCalls))
	}

	// The submission must reference the draft by creation id.
	draftID := creationIDs(setCalls[0].Args)[0]
	submission := setCalls[1].Args["create"].(map[string]interface{})
	for _, obj := range submission {
		emailID := obj.(map[string]interface{})["emailId"].(string)
		if emailID != "#"+draftID {
			t.Errorf("expected emailId #%s, got %s", draftID, emailID)
		}
	}

	// On success the draft moves to Sent and loses the draft keyword.
	onSuccess := setCalls[1].Args["onSuccessUpdateEmail"].(map[string]interface{})
	for _, patch := range onSuccess {
		boxes := patch.(map[string]interface{})["mailboxIds"].(map[string]interface{})
		if boxes["mb-sent"] != true {
			t.Errorf("expected move to sent mailbox, got %v", boxes)
		}
		if cleared, ok := patch.(map[string]interface{})["keywords/"+KeywordDraft]; !ok || cleared != nil {
			t.Errorf("expected draft keyword cleared, got %v", patch)
		}
	}

	// The draft lands in Drafts with the draft keyword set.
	draft := setCalls[0].Args["create"].(map[string]interface{})[draftID].(map[string]interface{})
	boxes := draft["mailboxIds"].(map[string]interface{})
	if boxes["mb-drafts"] != true {
		t.Errorf("expected draft in drafts mailbox, got %v", boxes)
	}
}

func TestSendEmail_CreateRejected(t *testing.T) {
	client := openTestClient(t, sendHandler(t, func(w http.ResponseWriter, calls []capturedCall) {
		draftID := creationIDs(calls[0].Args)[0]
		submitID := creationIDs(calls[1].Args)[0]
		fmt.Fprintf(w, `{"methodResponses": [
			["Email/set", {"notCreated": {%q: {"type": "invalidProperties", "description": "bad to"}}}, %q],
			["EmailSubmission/set", {"notCreated": {%q: {"type": "invalidEmail"}}}, %q]
		]}`, draftID, calls[0].CallID, submitID, calls[1].CallID)
	}))

	_, err := client.SendEmail(context.Background(), Draft{
		To:       []Address{{Email: "bob@example.com"}},
		Subject:  "Hello",
		TextBody: "Hi Bob",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var sendErr *SendRejectedError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendRejectedError, got %T", err)
	}
	if sendErr.Stage != "create" {
		t.Errorf("expected create stage, got %s", sendErr.Stage)
	}
	if sendErr.Err.Type != "invalidProperties" {
		t.Errorf("expected invalidProperties, got %s", sendErr.Err.Type)
	}
}

func TestSendEmail_SubmitRejected(t *testing.T) {
	client := openTestClient(t, sendHandler(t, func(w http.ResponseWriter, calls []capturedCall) {
		draftID := creationIDs(calls[0].Args)[0]
		submitID := creationIDs(calls[1].Args)[0]
		fmt.Fprintf(w, `{"methodResponses": [
			["Email/set", {"created": {%q: {"id": "msg42"}}}, %q],
			["EmailSubmission/set", {"notCreated": {%q: {"type": "forbiddenFrom"}}}, %q]
		]}`, draftID, calls[0].CallID, submitID, calls[1].CallID)
	}))

	_, err := client.SendEmail(context.Background(), Draft{
		To:       []Address{{Email: "bob@example.com"}},
		Subject:  "Hello",
		TextBody: "Hi Bob",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var sendErr *SendRejectedError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *SendRejectedError, got %T", err)
	}
	if sendErr.Stage != "submit" {
		t.Errorf("expected submit stage, got %s", sendErr.Stage)
	}
}

func TestSendEmail_NoIdentity(t *testing.T) {
	client := openTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls := decodeCalls(t, r)
		fmt.Fprintf(w, `{"methodResponses": [["Identity/get", {"list": []}, %q]]}`, calls[0].CallID)
	})

	_, err := client.SendEmail(context.Background(), Draft{
		To:       []Address{{Email: "bob@example.com"}},
		Subject:  "Hello",
		TextBody: "Hi Bob",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
