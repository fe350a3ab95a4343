package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"photo-counter/internal/domain/entity"
)

type cliEnv struct {
	dataDir string
	env     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("PHOTO_DIR", "")
	t.Setenv("DETECTOR_API_KEY", "")
	t.Setenv("LOG_DIR", "")
	t.Setenv("DETECTOR_DRIVER", "remote")
	dir := t.TempDir()
	return &cliEnv{dataDir: filepath.Join(dir, "data"), env: filepath.Join(dir, "missing.env")}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env", e.env, "--data-dir", e.dataDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err)
	return out
}

func (e *cliEnv) photo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.jpg")
	require.NoError(t, os.WriteFile(path, []byte("\xff\xd8\xff\xe0jpeg"), 0o600))
	return path
}

func TestCLI_SessionLifecycle(t *testing.T) {
	e := newCLIEnv(t)

	id := strings.TrimSpace(e.mustRun(t, "session", "create", "Warehouse", "--object-type", "box"))
	require.NotEmpty(t, id)

	out := e.mustRun(t, "session", "list")
	require.Contains(t, out, id)
	require.Contains(t, out, "Warehouse")

	imageID := strings.TrimSpace(e.mustRun(t, "image", "add", id, "/photos/1.jpg", "--count", "5"))
	e.mustRun(t, "image", "add", id, "/photos/2.jpg", "--count", "3")

	var s entity.Session
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "session", "show", id)), &s))
	require.Equal(t, 8, s.TotalCount)
	require.Equal(t, "box", s.ObjectType)

	e.mustRun(t, "image", "remove", id, imageID)
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "session", "show", id)), &s))
	require.Equal(t, 3, s.TotalCount)

	e.mustRun(t, "session", "rename", id, "Depot")
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "session", "show", id)), &s))
	require.Equal(t, "Depot", s.Name)
	require.Equal(t, "box", s.ObjectType)

	e.mustRun(t, "session", "delete", id)
	_, err := e.run(t, "session", "show", id)
	require.True(t, entity.IsNotFound(err))
}

func TestCLI_CountManual(t *testing.T) {
	e := newCLIEnv(t)
	id := strings.TrimSpace(e.mustRun(t, "session", "create", "Shelf"))
	photo := e.photo(t)

	out := e.mustRun(t, "count", id, photo, "--taps", "10,10; 20,20;30,30")
	require.Contains(t, out, "count=3 corrections=3 session total=3")

	out = e.mustRun(t, "count", id, photo, "--count", "4")
	require.Contains(t, out, "count=4 corrections=0 session total=7")

	_, err := e.run(t, "count", id, photo, "--count", "0")
	require.True(t, entity.IsValidation(err))

	_, err = e.run(t, "count", id, photo, "--taps", "1;2")
	require.Error(t, err)

	_, err = e.run(t, "count", id, photo)
	require.Error(t, err)
}

func TestCLI_CountAutomatic(t *testing.T) {
	e := newCLIEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-cli" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"6"}}]}`))
	}))
	defer srv.Close()
	t.Setenv("DETECTOR_DRIVER", "remote")
	t.Setenv("DETECTOR_ENDPOINT", srv.URL)

	id := strings.TrimSpace(e.mustRun(t, "session", "create", "Cans", "--object-type", "can"))
	photo := e.photo(t)

	_, err := e.run(t, "count", id, photo, "--auto")
	require.ErrorContains(t, err, "API key")

	e.mustRun(t, "settings", "set", "detectorApiKey", "sk-cli")
	out := e.mustRun(t, "count", id, photo, "--auto")
	require.Contains(t, out, "count=6")
}

func TestCLI_Export(t *testing.T) {
	e := newCLIEnv(t)
	id := strings.TrimSpace(e.mustRun(t, "session", "create", "Shelf"))
	e.mustRun(t, "image", "add", id, "/photos/1.jpg", "--count", "2")

	out := e.mustRun(t, "export", id)
	require.True(t, strings.HasPrefix(out, "Image ID,Count,Timestamp,Corrections\n"))
	require.True(t, strings.HasSuffix(out, "\n\nTotal Count:,2"))

	var s entity.Session
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "export", id, "--format", "json")), &s))
	require.Equal(t, 2, s.TotalCount)

	file := filepath.Join(t.TempDir(), "out.csv")
	e.mustRun(t, "export", id, "-o", file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, out, string(data))

	_, err = e.run(t, "export", id, "--format", "xml")
	require.Error(t, err)
}

func TestCLI_Settings(t *testing.T) {
	e := newCLIEnv(t)

	e.mustRun(t, "settings", "set", "sensitivity", "0.4")
	e.mustRun(t, "settings", "set", "theme", "light")
	e.mustRun(t, "settings", "set", "detectorApiKey", "secret")

	var s entity.Settings
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "settings", "show")), &s))
	require.Equal(t, 0.4, s.Sensitivity)
	require.Equal(t, "light", s.Theme)
	require.Equal(t, "********", s.DetectorAPIKey)

	_, err := e.run(t, "settings", "set", "sensitivity", "3")
	require.True(t, entity.IsValidation(err))

	_, err = e.run(t, "settings", "set", "color", "red")
	require.Error(t, err)
}

func TestCLI_BotNeedsToken(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "")
	_, err := e.run(t, "bot")
	require.ErrorContains(t, err, "TELEGRAM_TOKEN")
}

func TestParseTaps(t *testing.T) {
	points, err := parseTaps("1,2;3.5, 4;")
	require.NoError(t, err)
	require.Equal(t, [][2]float64{{1, 2}, {3.5, 4}}, points)

	_, err = parseTaps("1,x")
	require.Error(t, err)
}
