package api_test

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func currentFormat(t *testing.T) map[string]interface{} {
	t.Helper()
	status, resp := makeRequest(t, "GET", "/registration_number_format", nil)
	require.Equal(t, http.StatusOK, status)
	return resp.object(t)
}

// TestFormatRoundTrip changes the format and restores it, checking that
// existing registration numbers are rewritten both ways.
func TestFormatRoundTrip(t *testing.T) {
	original := currentFormat(t)
	patientReg := createPatient(t)

	status, updateResp := makeRequest(t, "PUT", "/registration_number_format", map[string]interface{}{
		"digit_groups": []int{3, 4},
		"separators":   []string{"/"},
	})
	require.Equal(t, http.StatusOK, status)
	newPattern, _ := updateResp.object(t)["pattern"].(string)
	require.NotEmpty(t, newPattern)

	defer func() {
		status, _ := makeRequest(t, "PUT", "/registration_number_format", map[string]interface{}{
			"digit_groups": original["digit_groups"],
			"separators":   original["separators"],
		})
		require.Equal(t, http.StatusOK, status)
	}()

	// The old identifier no longer resolves; the reformatted one does.
	status, _ = makeRequest(t, "GET", "/patients/"+patientReg, nil)
	assert.Equal(t, http.StatusNotFound, status)

	re := regexp.MustCompile(`\D`)
	status, listResp := makeRequest(t, "GET", "/patients?registration_numbers="+re.ReplaceAllString(patientReg, ""), nil)
	require.Equal(t, http.StatusOK, status)
	patients := listResp.array(t)
	require.Len(t, patients, 1)

	newReg, _ := patients[0]["registration_number"].(string)
	assert.Regexp(t, newPattern, newReg)
	assert.Equal(t, re.ReplaceAllString(patientReg, ""), re.ReplaceAllString(newReg, ""),
		"numeric value survives the reformat")
}

func TestFormatValidation(t *testing.T) {
	status, resp := makeRequest(t, "PUT", "/registration_number_format", map[string]interface{}{
		"digit_groups": []int{2, 2},
		"separators":   []string{"-", "-"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Fields, "separators")
}

func TestFormatPartialUpdate(t *testing.T) {
	original := currentFormat(t)

	status, resp := makeRequest(t, "PATCH", "/registration_number_format", map[string]interface{}{
		"separators": original["separators"],
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, original["digit_groups"], resp.object(t)["digit_groups"],
		"omitted digit groups keep the stored value")
}
