package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientFlow(t *testing.T) {
	name := uniqueName("Test Patient", time.Now().UnixNano())

	status, createResp := makeRequest(t, "POST", "/patients", map[string]interface{}{
		"name":   name,
		"phone":  "555-0101",
		"gender": "FEMALE",
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, createResp.IsSuccess())

	created := createResp.object(t)
	regNumber, _ := created["registration_number"].(string)
	require.NotEmpty(t, regNumber, "server assigns the registration number")
	assert.Equal(t, name, created["name"])

	// The identifier must match the active format.
	status, formatResp := makeRequest(t, "GET", "/registration_number_format", nil)
	require.Equal(t, http.StatusOK, status)
	pattern, _ := formatResp.object(t)["pattern"].(string)
	assert.Regexp(t, pattern, regNumber)

	status, getResp := makeRequest(t, "GET", "/patients/"+regNumber, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, name, getResp.object(t)["name"])

	// Batch lookup by the assigned number.
	status, listResp := makeRequest(t, "GET", "/patients?registration_numbers="+regNumber, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, listResp.array(t), 1)

	// Search by name fragment.
	status, searchResp := makeRequest(t, "GET", fmt.Sprintf("/patients/search?q=%d", time.Now().UnixNano()), nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, searchResp.IsSuccess())
}

func TestPatientValidation(t *testing.T) {
	status, resp := makeRequest(t, "POST", "/patients", map[string]interface{}{
		"name":   "Bad Gender",
		"gender": "UNKNOWN",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", resp.Status)

	status, _ = makeRequest(t, "POST", "/patients", map[string]interface{}{
		"phone": "555-0102",
	})
	assert.Equal(t, http.StatusBadRequest, status, "name is required")
}

func TestPatientNotFound(t *testing.T) {
	status, resp := makeRequest(t, "GET", "/patients/99-99-999", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "error", resp.Status)
}
