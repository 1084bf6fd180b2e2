package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx backend response. The store layers do not
// branch on the cause; Detail is carried through for display only.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

// decodeError drains a failed response into an *APIError. The backend
// reports failures as {"detail": "..."}; anything else is taken as
// plain text.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return &APIError{StatusCode: resp.StatusCode, Detail: payload.Detail}
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
}
