package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dmorandi/mailbridge/internal/jmap"
	"github.com/dmorandi/mailbridge/internal/logging"
	"github.com/dmorandi/mailbridge/internal/models"
	"github.com/dmorandi/mailbridge/internal/repository"
	"github.com/dmorandi/mailbridge/internal/service"
)

// Syncer is the sync surface exposed over HTTP.
type Syncer interface {
	SyncInbox(ctx context.Context, limit int) ([]models.Email, error)
	Status() (time.Time, int)
}

// Mailer is the compose surface exposed over HTTP.
type Mailer interface {
	Send(ctx context.Context, in service.SendInput) (*jmap.SendResult, error)
	Reply(ctx context.Context, id, textBody, htmlBody string, replyAll bool) (*jmap.SendResult, error)
	Forward(ctx context.Context, id string, to, cc []jmap.Address, leadIn string) (*jmap.SendResult, error)
	Archive(ctx context.Context, providerID string) error
	MarkRead(ctx context.Context, ids []string) (int, error)
	DownloadAttachment(ctx context.Context, blobID, name, contentType string) (*jmap.BlobDownload, error)
}

// EmailReader is the local read surface exposed over HTTP.
type EmailReader interface {
	List(ctx context.Context, limit, offset int) ([]models.Email, error)
	GetByID(ctx context.Context, id string) (*models.Email, error)
}

type Server struct {
	syncer Syncer
	mailer Mailer
	emails EmailReader
	mux    *http.ServeMux
}

func NewServer(syncer Syncer, mailer Mailer, emails EmailReader) *Server {
	server := &Server{
		syncer: syncer,
		mailer: mailer,
		emails: emails,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", server.handleHealth)
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/sync", server.handleSync)
	mux.HandleFunc("/send", server.handleSend)
	mux.HandleFunc("/reply", server.handleReply)
	mux.HandleFunc("/forward", server.handleForward)
	mux.HandleFunc("/archive", server.handleArchive)
	mux.HandleFunc("/mark-as-read", server.handleMarkRead)
	mux.HandleFunc("/emails", server.handleEmails)
	mux.HandleFunc("/emails/", server.handleEmail)
	mux.HandleFunc("/attachment/", server.handleAttachment)
	server.mux = mux
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	logging.Log.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"duration":   time.Since(start).String(),
	}).Info("request handled")
}

// recipient accepts either a bare address string or an
// {email, name} object.
type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (r *recipient) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		r.Email = plain
		r.Name = ""
		return nil
	}
	type object recipient
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = recipient(obj)
	return nil
}

func addresses(recipients []recipient) []jmap.Address {
	var out []jmap.Address
	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		out = append(out, jmap.Address{Email: r.Email, Name: r.Name})
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/health" {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	lastSync, count := s.syncer.Status()
	payload := map[string]interface{}{
		"status":     "ok",
		"totalSyncs": count,
	}
	if lastSync.IsZero() {
		payload["lastSync"] = nil
	} else {
		payload["lastSync"] = lastSync.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Limit int `json:"limit"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	emails, err := s.syncer.SyncInbox(r.Context(), req.Limit)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	sample := emails
	if len(sample) > 3 {
		sample = sample[:3]
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"synced":  len(emails),
		"sample":  sample,
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		To          []recipient `json:"to"`
		Cc          []recipient `json:"cc"`
		Subject     string      `json:"subject"`
		TextBody    string      `json:"textBody"`
		HTMLBody    string      `json:"htmlBody"`
		Attachments []struct {
			Name string `json:"name"`
			Type string `json:"type"`
			Data string `json:"data"`
		} `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	to := addresses(req.To)
	if len(to) == 0 {
		respondError(w, http.StatusBadRequest, "to is required")
		return
	}
	if req.Subject == "" {
		respondError(w, http.StatusBadRequest, "subject is required")
		return
	}
	if req.TextBody == "" {
		respondError(w, http.StatusBadRequest, "textBody is required")
		return
	}

	input := service.SendInput{
		To:       to,
		Cc:       addresses(req.Cc),
		Subject:  req.Subject,
		TextBody: req.TextBody,
		HTMLBody: req.HTMLBody,
	}
	for _, att := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Data)
		if err != nil {
			respondError(w, http.StatusBadRequest, "attachment data is not valid base64")
			return
		}
		input.Attachments = append(input.Attachments, service.AttachmentUpload{
			Name: att.Name,
			Type: att.Type,
			Data: data,
		})
	}

	result, err := s.mailer.Send(r.Context(), input)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondSendResult(w, result)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		EmailID  string `json:"emailId"`
		TextBody string `json:"textBody"`
		HTMLBody string `json:"htmlBody"`
		ReplyAll bool   `json:"replyAll"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EmailID == "" {
		respondError(w, http.StatusBadRequest, "emailId is required")
		return
	}
	if req.TextBody == "" {
		respondError(w, http.StatusBadRequest, "textBody is required")
		return
	}

	result, err := s.mailer.Reply(r.Context(), req.EmailID, req.TextBody, req.HTMLBody, req.ReplyAll)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondSendResult(w, result)
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		EmailID  string      `json:"emailId"`
		To       []recipient `json:"to"`
		Cc       []recipient `json:"cc"`
		TextBody string      `json:"textBody"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EmailID == "" {
		respondError(w, http.StatusBadRequest, "emailId is required")
		return
	}
	to := addresses(req.To)
	if len(to) == 0 {
		respondError(w, http.StatusBadRequest, "to is required")
		return
	}

	result, err := s.mailer.Forward(r.Context(), req.EmailID, to, addresses(req.Cc), req.TextBody)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondSendResult(w, result)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MessageID == "" {
		respondError(w, http.StatusBadRequest, "messageId is required")
		return
	}

	if err := s.mailer.Archive(r.Context(), req.MessageID); err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.MessageIDs) == 0 {
		respondError(w, http.StatusBadRequest, "messageIds is required")
		return
	}

	updated, err := s.mailer.MarkRead(r.Context(), req.MessageIDs)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"updated": updated,
	})
}

func (s *Server) handleEmails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	emails, err := s.emails.List(r.Context(), limit, offset)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"emails":  emails,
	})
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/emails/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "email id is required")
		return
	}

	email, err := s.emails.GetByID(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"email":   email,
	})
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	blobID := strings.TrimPrefix(r.URL.Path, "/attachment/")
	if blobID == "" {
		respondError(w, http.StatusBadRequest, "blob id is required")
		return
	}

	name := r.URL.Query().Get("name")
	contentType := r.URL.Query().Get("type")

	blob, err := s.mailer.DownloadAttachment(r.Context(), blobID, name, contentType)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	if blob.Type != "" {
		w.Header().Set("Content-Type", blob.Type)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// respondFailure maps operation errors onto the HTTP error contract.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "email not found")
	case errors.Is(err, service.ErrNoRecipients):
		respondError(w, http.StatusBadRequest, "no recipients resolved")
	default:
		logging.Log.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondSendResult(w http.ResponseWriter, result *jmap.SendResult) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"messageId": result.MessageID,
		"submitted": result.Submitted,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
