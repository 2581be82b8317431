package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GetUserInfo returns the caller as the API sees them.
func (s *Session) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/secure/user-info")
	if err != nil {
		return nil, err
	}

	var info UserInfo
	if err := decodeJSON(resp, &info, http.StatusOK); err != nil {
		return nil, err
	}

	return &info, nil
}

// ListDecisions lists audited access decisions. Requires ROLE_ADMIN.
func (s *Session) ListDecisions(ctx context.Context, q DecisionQuery) ([]Decision, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/admin/decisions"+q.encode())
	if err != nil {
		return nil, err
	}

	var list DecisionList
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}

	return list.Decisions, nil
}

// GetDecision fetches one audited decision by ID. Requires ROLE_ADMIN.
func (s *Session) GetDecision(ctx context.Context, id string) (*Decision, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/admin/decisions/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var d Decision
	if err := decodeJSON(resp, &d, http.StatusOK); err != nil {
		return nil, err
	}

	return &d, nil
}

// Do sends an authenticated request to any API path. The caller closes the
// response body.
func (s *Session) Do(ctx context.Context, method, path string) (*http.Response, error) {
	return s.doAuthRequest(ctx, method, path)
}

func (q DecisionQuery) encode() string {
	v := url.Values{}
	if q.Subject != "" {
		v.Set("subject", q.Subject)
	}
	if q.Allowed != nil {
		v.Set("allowed", strconv.FormatBool(*q.Allowed))
	}
	if !q.Since.IsZero() {
		v.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
