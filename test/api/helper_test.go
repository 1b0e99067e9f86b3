package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
)

type apiResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Data    json.RawMessage   `json:"data,omitempty"`
}

func (r apiResponse) IsSuccess() bool {
	return r.Status == "success"
}

// object decodes the data payload as a JSON object.
func (r apiResponse) object(t *testing.T) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	if err := json.Unmarshal(r.Data, &obj); err != nil {
		t.Fatalf("response data is not an object: %v (%s)", err, string(r.Data))
	}
	return obj
}

// array decodes the data payload as a JSON array.
func (r apiResponse) array(t *testing.T) []map[string]interface{} {
	t.Helper()
	var arr []map[string]interface{}
	if err := json.Unmarshal(r.Data, &arr); err != nil {
		t.Fatalf("response data is not an array: %v (%s)", err, string(r.Data))
	}
	return arr
}

func makeRequest(t *testing.T, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+"/api/v1"+path, reqBody)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+doctorToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var decoded apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("failed to decode response %s: %v", string(raw), err)
		}
	}
	return resp.StatusCode, decoded
}

func uniqueName(prefix string, n int64) string {
	return fmt.Sprintf("%s %d", prefix, n)
}
