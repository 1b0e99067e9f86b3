package api_test

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/nexpat/clinicq/pkg/auth"
)

// The suite runs against a live server and is skipped unless API_TEST_URL
// is set, e.g. API_TEST_URL=http://localhost:8080 go test ./test/api/...
var (
	baseURL     string
	doctorToken string
)

func TestMain(m *testing.M) {
	baseURL = os.Getenv("API_TEST_URL")
	if baseURL == "" {
		fmt.Println("API_TEST_URL not set, skipping end-to-end API tests")
		os.Exit(0)
	}

	if err := waitForServer(baseURL + "/api/v1/health/ready"); err != nil {
		fmt.Printf("API server not reachable: %v\n", err)
		os.Exit(1)
	}

	secret := os.Getenv("API_TEST_JWT_SECRET")
	if secret == "" {
		secret = "change-me"
	}
	jwtSvc := auth.NewJWTService(secret, time.Hour, "clinicq")
	token, err := jwtSvc.GenerateAccessToken("e2e-doctor", "E2E Doctor", []string{auth.RoleDoctor})
	if err != nil {
		fmt.Printf("failed to mint test token: %v\n", err)
		os.Exit(1)
	}
	doctorToken = token

	os.Exit(m.Run())
}

func waitForServer(url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	var lastErr error
	for i := 0; i < 10; i++ {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		} else {
			lastErr = err
		}
		time.Sleep(time.Second)
	}
	return lastErr
}
