package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSmokeFlow drives the built binary end to end against stubbed Auth0 and
// GraphQL endpoints: seed a session from captured tokens, then fetch and
// render a status snapshot.
func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w,
			`{"access_token":"smoke-access-token","id_token":"%s","refresh_token":"smoke-rotated-token","expires_in":300,"token_type":"Bearer"}`,
			unsignedIDToken(t, "A-1"),
		)
	}))
	defer auth.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")

		if bytes.Contains([]byte(req.Query), []byte("getProductAgreements")) {
			_, _ = fmt.Fprint(w, `{"data":{"getProductAgreements":{"planName":"OVO Solar Boost","nmi":"6001234567","validFrom":"2026-01-01","validTo":"2027-01-01","rates":[{"type":"PEAK","unitPrice":0.45},{"type":"FEEDIN","unitPrice":0.08}]}}}`)
			return
		}

		start := time.Date(time.Now().Year(), time.Now().Month(), time.Now().Day(), 11, 0, 0, 0, time.Local)
		_, _ = fmt.Fprintf(w,
			`{"data":{"getHourlyData":{"solar":[{"periodFrom":"%s","periodTo":"%s","consumption":3.2,"readType":"ACTUAL","charge":null}],"export":[],"savings":[]}}}`,
			start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339),
		)
	}))
	defer api.Close()

	env := []string{
		"OVOAU_AUTH_DOMAIN=" + auth.URL,
		"OVOAU_API_ENDPOINT=" + api.URL,
	}

	_, stderr, err := runCLI(t, binaryPath, home, env,
		"login", "tokens",
		"--access", "seed-access-token",
		"--id", unsignedIDToken(t, "A-1"),
		"--refresh", "seed-refresh-token",
	)
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runCLI(t, binaryPath, home, env, "status", "--json")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "solar_today")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "ovoau-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/ovoau")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build ovoau binary: %s", string(output))
	return binaryPath
}

func runCLI(t *testing.T, binaryPath, home string, extraEnv []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)
	cmd.Env = append(cmd.Env, extraEnv...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func unsignedIDToken(t *testing.T, accountID string) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	claims, err := json.Marshal(map[string]any{
		"https://my.ovoenergy.com.au/accountId": accountID,
		"exp":                                   time.Now().Add(5 * time.Minute).Unix(),
	})
	require.NoError(t, err)

	return header + "." + base64.RawURLEncoding.EncodeToString(claims) + ".sig"
}
