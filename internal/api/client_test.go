// internal/api/client_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000", "secret123")

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected baseURL=http://localhost:5000, got %s", c.baseURL)
	}
	if c.apiKey != "secret123" {
		t.Errorf("expected apiKey=secret123, got %s", c.apiKey)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "")
	err := c.Healthcheck()
	if err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://localhost:59999", "") // unlikely to be listening
	err := c.Healthcheck()
	if err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "")
	err := c.Healthcheck()
	if err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestUpload_Success(t *testing.T) {
	var receivedSecret, receivedFilename, receivedTrackName string
	var receivedPointCount, receivedClosed, receivedTag string
	var receivedFileContent []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tracks/add" {
			t.Errorf("expected path /api/v1/tracks/add, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		err := r.ParseMultipartForm(10 << 20)
		if err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}

		receivedSecret = r.FormValue("secret")
		receivedFilename = r.FormValue("filename")
		receivedTrackName = r.FormValue("trackName")
		receivedPointCount = r.FormValue("pointCount")
		receivedClosed = r.FormValue("closed")
		receivedTag = r.FormValue("tag")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("failed to get file: %v", err)
		}
		defer file.Close()

		receivedFileContent = make([]byte, 1024)
		n, _ := file.Read(receivedFileContent)
		receivedFileContent = receivedFileContent[:n]

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Create temp file
	tmpDir := t.TempDir()
	testFile := tmpDir + "/gp_circuit.json.gz"
	if err := os.WriteFile(testFile, []byte("test content"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	c := New(server.URL, "mysecret")
	meta := UploadMetadata{
		TrackName:  "GP Circuit",
		PointCount: 64,
		Closed:     true,
		Tag:        "race",
	}

	err := c.Upload(testFile, meta)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if receivedSecret != "mysecret" {
		t.Errorf("expected secret=mysecret, got %s", receivedSecret)
	}
	if receivedFilename != "gp_circuit.json.gz" {
		t.Errorf("expected filename=gp_circuit.json.gz, got %s", receivedFilename)
	}
	if receivedTrackName != "GP Circuit" {
		t.Errorf("expected trackName=GP Circuit, got %s", receivedTrackName)
	}
	if receivedPointCount != "64" {
		t.Errorf("expected pointCount=64, got %s", receivedPointCount)
	}
	if receivedClosed != "true" {
		t.Errorf("expected closed=true, got %s", receivedClosed)
	}
	if receivedTag != "race" {
		t.Errorf("expected tag=race, got %s", receivedTag)
	}
	if string(receivedFileContent) != "test content" {
		t.Errorf("expected file content 'test content', got '%s'", string(receivedFileContent))
	}
}

func TestUpload_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	err := c.Upload("/nonexistent/file.json.gz", UploadMetadata{})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	testFile := tmpDir + "/test.json.gz"
	_ = os.WriteFile(testFile, []byte("content"), 0644)

	c := New(server.URL, "wrong-secret")
	err := c.Upload(testFile, UploadMetadata{})
	if err == nil {
		t.Error("expected error for 403 response")
	}
}
