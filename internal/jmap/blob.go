package jmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// BlobInfo describes an uploaded blob.
type BlobInfo struct {
	AccountID string `json:"accountId"`
	BlobID    string `json:"blobId"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
}

// BlobDownload is the content of a downloaded blob.
type BlobDownload struct {
	Data []byte
	Type string
}

// UploadBlob posts data to the upload endpoint and returns the blob id.
func (c *Client) UploadBlob(ctx context.Context, data []byte, contentType string) (*BlobInfo, error) {
	uploadURL := expandTemplate(c.session.UploadURL, map[string]string{
		"accountId": c.session.AccountID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &RequestError{Status: resp.StatusCode, Body: string(body)}
	}

	var info BlobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	return &info, nil
}

// DownloadBlob fetches a blob through the download URL template.
func (c *Client) DownloadBlob(ctx context.Context, blobID, name, contentType string) (*BlobDownload, error) {
	if name == "" {
		name = "attachment"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	downloadURL := expandTemplate(c.session.DownloadURL, map[string]string{
		"accountId": c.session.AccountID,
		"blobId":    blobID,
		"name":      name,
		"type":      contentType,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &RequestError{Status: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	return &BlobDownload{
		Data: data,
		Type: resp.Header.Get("Content-Type"),
	}, nil
}

// expandTemplate substitutes percent-encoded values into the {placeholder}
// slots of a session URL template.
func expandTemplate(template string, vars map[string]string) string {
	for key, value := range vars {
		template = strings.ReplaceAll(template, "{"+key+"}", url.QueryEscape(value))
	}
	return template
}
