package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mapgrove/mapsync/internal/config"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/models"
)

type httpRemoteAdapter struct {
	client *resty.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time

	logger *logger.Logger
}

// NewHTTPRemoteAdapter constructs an HTTP/REST implementation of
// [RemoteAdapter]. It normalises and validates the base URL from
// cfg.BaseURL and configures the underlying resty client with the resolved
// base URL and request timeout.
//
// Returns an error if cfg.BaseURL is empty or cannot be parsed as a valid
// URL.
func NewHTTPRemoteAdapter(cfg config.Adapter, logger *logger.Logger) (RemoteAdapter, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter base url: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout)

	return &httpRemoteAdapter{client: client, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [RemoteAdapter]. It stores token (whitespace-trimmed)
// for the Authorization header of all subsequent requests. The expiry claim
// is read from the JWT (without signature verification, which is the
// backend's job) so requests can fail fast locally once the token lapses.
func (h *httpRemoteAdapter) SetToken(token string) {
	token = strings.TrimSpace(token)

	var expiry time.Time
	if token != "" {
		if claims := parseTokenClaims(token); claims != nil {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				expiry = exp.Time
			}
		}
	}

	h.mu.Lock()
	h.token = token
	h.tokenExpiry = expiry
	h.mu.Unlock()
}

func parseTokenClaims(token string) jwt.Claims {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	return parsed.Claims
}

// ListFiles implements [RemoteAdapter]. It GETs the vault's file listing
// and decodes one [models.RemoteFile] per map file.
func (h *httpRemoteAdapter) ListFiles(ctx context.Context, vaultID string) ([]models.RemoteFile, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := req.Get(fmt.Sprintf("/api/vaults/%s/files", url.PathEscape(vaultID)))
	if err != nil {
		return nil, fmt.Errorf("%w: list files request: %v", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var files []models.RemoteFile
	if err = json.Unmarshal(resp.Body(), &files); err != nil {
		return nil, fmt.Errorf("decode list files response: %w", err)
	}

	return files, nil
}

// ReadFile implements [RemoteAdapter]. It GETs a single map file and
// decodes the [models.MapPayload] envelope.
func (h *httpRemoteAdapter) ReadFile(ctx context.Context, vaultID, fileID string) (models.MapPayload, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return models.MapPayload{}, err
	}

	resp, err := req.Get(h.filePath(vaultID, fileID))
	if err != nil {
		return models.MapPayload{}, fmt.Errorf("%w: read file request: %v", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.MapPayload{}, err
	}

	var payload models.MapPayload
	if err = json.Unmarshal(resp.Body(), &payload); err != nil {
		return models.MapPayload{}, fmt.Errorf("decode read file response: %w", err)
	}

	return payload, nil
}

// WriteFile implements [RemoteAdapter]. It PUTs the map payload; a
// non-empty expectedRevision is sent as an If-Match precondition and a 409
// or 412 response surfaces as [ErrRevisionMismatch]. Returns the new
// revision assigned by the backend.
func (h *httpRemoteAdapter) WriteFile(ctx context.Context, vaultID, fileID string, payload models.MapPayload, expectedRevision string) (string, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return "", err
	}

	req.
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if expectedRevision != "" {
		req.SetHeader("If-Match", expectedRevision)
	}

	resp, err := req.Put(h.filePath(vaultID, fileID))
	if err != nil {
		return "", fmt.Errorf("%w: write file request: %v", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}

	var result struct {
		Revision string `json:"revision"`
	}
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("decode write file response: %w", err)
	}

	return result.Revision, nil
}

// DeleteFile implements [RemoteAdapter]. It sends a DELETE for the map
// file; a 404 is not an error here because deletes must be idempotent
// under retry.
func (h *httpRemoteAdapter) DeleteFile(ctx context.Context, vaultID, fileID string) error {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := req.Delete(h.filePath(vaultID, fileID))
	if err != nil {
		return fmt.Errorf("%w: delete file request: %v", ErrNetwork, err)
	}

	if mapped := mapHTTPError(resp); mapped != nil {
		if errors.Is(mapped, ErrNotFound) {
			return nil
		}
		return mapped
	}

	return nil
}

// GetVaultTimestamp implements [RemoteAdapter]. It GETs the vault metadata
// record and returns the backend's vault-wide modification time.
func (h *httpRemoteAdapter) GetVaultTimestamp(ctx context.Context, vaultID string) (time.Time, error) {
	req, err := h.authedRequest(ctx)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := req.Get(fmt.Sprintf("/api/vaults/%s", url.PathEscape(vaultID)))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: get vault timestamp request: %v", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return time.Time{}, err
	}

	var result struct {
		ModifiedTime time.Time `json:"modified_time"`
	}
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return time.Time{}, fmt.Errorf("decode vault timestamp response: %w", err)
	}

	return result.ModifiedTime, nil
}

func (h *httpRemoteAdapter) filePath(vaultID, fileID string) string {
	return fmt.Sprintf("/api/vaults/%s/files/%s", url.PathEscape(vaultID), url.PathEscape(fileID))
}

func (h *httpRemoteAdapter) authedRequest(ctx context.Context) (*resty.Request, error) {
	h.mu.RLock()
	token, expiry := h.token, h.tokenExpiry
	h.mu.RUnlock()

	if token == "" {
		return nil, fmt.Errorf("%w: no token set", ErrUnauthorized)
	}
	if !expiry.IsZero() && time.Now().After(expiry) {
		return nil, fmt.Errorf("%w: token expired at %s", ErrUnauthorized, expiry.Format(time.RFC3339))
	}

	req := h.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token)

	return req, nil
}
