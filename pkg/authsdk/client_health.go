package authsdk

import (
	"context"
	"net/http"
)

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}

	return &health, nil
}

// GetReadiness checks if the service is ready. A service still waiting on
// its signing keys answers 503, which is returned as an *APIError.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}

	return &health, nil
}

// GetResourceMetadata fetches the RFC 9728 protected resource metadata.
func (c *SDKClient) GetResourceMetadata(ctx context.Context) (*ResourceMetadata, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/oauth-protected-resource", nil)
	if err != nil {
		return nil, err
	}

	var meta ResourceMetadata
	if err := decodeJSON(resp, &meta, http.StatusOK); err != nil {
		return nil, err
	}

	return &meta, nil
}
