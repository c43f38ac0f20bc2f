package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/fadilmartias/project-evaluator/internal/config"
	"github.com/fadilmartias/project-evaluator/internal/model"
)

var ErrManifestNotFound = errors.New("manifest not found")

// UploadServiceClient fetches project manifests from the upload service.
type UploadServiceClient struct {
	client *resty.Client
}

func NewUploadServiceClient(cfg *config.UploadServiceConfig) *UploadServiceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &UploadServiceClient{client: client}
}

// FetchManifest loads the manifest of a project. The body may be the
// manifest itself or the usual {"success","data"} envelope.
func (s *UploadServiceClient) FetchManifest(ctx context.Context, projectID uuid.UUID) (*model.Manifest, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("projectId", projectID.String()).
		Get("/projects/{projectId}/manifest")
	if err != nil {
		return nil, fmt.Errorf("upload service request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("project %s: %w", projectID, ErrManifestNotFound)
	case resp.IsError():
		msg := gjson.GetBytes(resp.Body(), "message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("upload service returned %d: %s", resp.StatusCode(), msg)
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("upload service returned invalid JSON")
	}
	raw := gjson.ParseBytes(body)
	if data := raw.Get("data"); data.Exists() {
		raw = data
	}

	var m model.Manifest
	if err := json.Unmarshal([]byte(raw.Raw), &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.ProjectID == uuid.Nil {
		m.ProjectID = projectID
	}
	return &m, nil
}
