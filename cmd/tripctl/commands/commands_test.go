package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdID = regexp.MustCompile(`Created trip ([0-9a-f-]{36})`)

// run executes tripctl against a file store rooted at dir
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--store-driver", "file", "--store-dsn", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func createTrip(t *testing.T, dir string, args ...string) string {
	t.Helper()
	base := []string{"trips", "create", "--destination", "Lisbon", "--start", "2030-05-01", "--end", "2030-05-08"}
	out, err := run(t, dir, append(base, args...)...)
	require.NoError(t, err)
	m := createdID.FindStringSubmatch(out)
	require.Len(t, m, 2, "unexpected output %q", out)
	return m[1]
}

const stagedFixture = `{
  "trips": [],
  "staged": [
    {"id": "cafe-1", "name": "Cafe A Brasileira", "address": "Rua Garrett 120", "coordinate": {"latitude": 38.7107, "longitude": -9.1416}, "types": ["cafe"]},
    {"id": "museum-1", "name": "MAAT", "coordinate": {"latitude": 38.6958, "longitude": -9.1925}, "types": ["museum"]}
  ]
}`

func TestTripsLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "trips", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No trips found")

	id := createTrip(t, dir, "--name", "Spring in Lisbon", "--description", "pastries")

	out, err = run(t, dir, "trips", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Spring in Lisbon")

	out, err = run(t, dir, "trips", "list", "--filter", "past")
	require.NoError(t, err)
	assert.Contains(t, out, "No trips found")

	out, err = run(t, dir, "trips", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Destination: Lisbon")
	assert.Contains(t, out, "(7 days)")
	assert.Contains(t, out, "Itinerary: empty")

	_, err = run(t, dir, "trips", "delete", id)
	require.NoError(t, err)

	_, err = run(t, dir, "trips", "show", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trip not found")
}

func TestTripsCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing destination", args: []string{"--start", "2030-01-01", "--end", "2030-01-02"}, wantErr: "invalid trip"},
		{name: "missing start", args: []string{"--destination", "Rome", "--end", "2030-01-02"}, wantErr: "--start is required"},
		{name: "bad end", args: []string{"--destination", "Rome", "--start", "2030-01-01", "--end", "Jan 2"}, wantErr: "invalid --end date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, t.TempDir(), append([]string{"trips", "create"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTripsListRejectsUnknownFilter(t *testing.T) {
	_, err := run(t, t.TempDir(), "trips", "list", "--filter", "someday")
	require.Error(t, err)
}

func TestImportStageAndCreateFromStaged(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(input, []byte(stagedFixture), 0o600))

	out, err := run(t, dir, "import", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 trips (0 skipped) and 2 staged places (0 skipped)")

	out, err = run(t, dir, "staged", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "cafe-1")
	assert.Contains(t, out, "[restaurant]")
	assert.Contains(t, out, "[museum]")

	id := createTrip(t, dir, "--staged", "museum-1,cafe-1")

	out, err = run(t, dir, "trips", "show", id)
	require.NoError(t, err)
	assert.Regexp(t, `(?s)1\. MAAT.*2\. Cafe A Brasileira`, out)

	out, err = run(t, dir, "staged", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No staged places")

	// Committed places are not staged again
	out, err = run(t, dir, "import", input)
	require.NoError(t, err)
	assert.Contains(t, out, "0 staged places (2 skipped)")
}

func TestStagedRemove(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(input, []byte(stagedFixture), 0o600))
	_, err := run(t, dir, "import", input)
	require.NoError(t, err)

	_, err = run(t, dir, "staged", "remove", "cafe-1")
	require.NoError(t, err)

	_, err = run(t, dir, "staged", "remove", "cafe-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "place not staged")
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []string{formatJSON, formatYAML} {
		t.Run(format, func(t *testing.T) {
			src := t.TempDir()
			createTrip(t, src, "--name", "Porto weekend")
			exportFile := filepath.Join(t.TempDir(), "export."+format)

			_, err := run(t, src, "export", "--format", format, "--output", exportFile)
			require.NoError(t, err)

			dst := t.TempDir()
			out, err := run(t, dst, "import", exportFile)
			require.NoError(t, err)
			assert.Contains(t, out, "Imported 1 trips (0 skipped)")

			out, err = run(t, dst, "trips", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "Porto weekend")

			// Re-importing skips trips that already exist
			out, err = run(t, dst, "import", exportFile)
			require.NoError(t, err)
			assert.Contains(t, out, "Imported 0 trips (1 skipped)")
		})
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, t.TempDir(), "export", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestSearchCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"places": [{
			"name": "places/abc",
			"displayName": {"text": "Worcester Art Museum"},
			"formattedAddress": "55 Salisbury St, Worcester, MA",
			"location": {"latitude": 42.273, "longitude": -71.801},
			"types": ["museum"]
		}]}`))
	}))
	defer server.Close()

	t.Setenv("GOOGLE_PLACES_API_KEY", "test-key")
	t.Setenv("GOOGLE_PLACES_BASE_URL", server.URL+"/")

	out, err := run(t, t.TempDir(), "search", "--provider", "google", "--lat", "42.259", "--lon", "-71.808", "art", "museum")
	require.NoError(t, err)
	assert.Contains(t, out, `Results for "art museum"`)
	assert.Contains(t, out, "Worcester Art Museum [museum]")
	assert.True(t, strings.Contains(out, " km"))
}

func TestSearchCommandWithoutProvider(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "none")
	_, err := run(t, t.TempDir(), "search", "museum")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no search provider configured")
}

func TestReindexCommand(t *testing.T) {
	var bulkBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/_bulk":
			raw, _ := io.ReadAll(r.Body)
			bulkBody = string(raw)
			_, _ = w.Write([]byte(`{"took": 1, "errors": false, "items": [
				{"index": {"_index": "places", "_id": "cafe-1", "status": 201}},
				{"index": {"_index": "places", "_id": "museum-1", "status": 201}}
			]}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	input := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(input, []byte(stagedFixture), 0o600))
	_, err := run(t, dir, "import", input)
	require.NoError(t, err)
	createTrip(t, dir, "--staged", "museum-1")

	out, err := run(t, dir, "reindex", "--elastic-url", server.URL, "--index", "places")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 of 2 places into places")
	assert.Contains(t, bulkBody, `"cafe-1"`)
	assert.Contains(t, bulkBody, `"museum-1"`)
}
