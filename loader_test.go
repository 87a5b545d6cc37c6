package mirrorplot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const scenarioJSON = `[[0,1,{"0":{"x":1,"y":0}}],[1,2,{"0":{"x":2,"y":1}}]]`

// Serves body at /data.json with the given status. Anything else is a 404.
func newDataServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/data.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPLoader(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := newDataServer(t, http.StatusOK, scenarioJSON)

		dataset, err := NewHTTPLoader(srv.URL+"/data.json", srv.Client()).Load(context.Background())
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if len(dataset) != 2 {
			t.Fatalf("expected 2 records, got %d", len(dataset))
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := newDataServer(t, http.StatusOK, scenarioJSON)

		_, err := NewHTTPLoader(srv.URL+"/missing.json", srv.Client()).Load(context.Background())
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if errors.Is(err, ErrMalformed) {
			t.Fatalf("a 404 should not be reported as malformed: %v", err)
		}

		var loadErr *LoadError
		if !errors.As(err, &loadErr) || loadErr.Kind != Unavailable {
			t.Fatalf("expected *LoadError of kind unavailable, got %#v", err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		srv := newDataServer(t, http.StatusInternalServerError, scenarioJSON)

		_, err := NewHTTPLoader(srv.URL+"/data.json", srv.Client()).Load(context.Background())
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		srv := newDataServer(t, http.StatusOK, `<html>not json</html>`)

		_, err := NewHTTPLoader(srv.URL+"/data.json", srv.Client()).Load(context.Background())
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("ConnectionRefused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL + "/data.json"
		srv.Close()

		_, err := NewHTTPLoader(url, nil).Load(context.Background())
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		srv := newDataServer(t, http.StatusOK, scenarioJSON)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewHTTPLoader(srv.URL+"/data.json", srv.Client()).Load(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestFileLoader(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		dataset, err := NewFileLoader("testdata/data.json").Load(context.Background())
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if len(dataset) != 7 {
			t.Fatalf("expected 7 records, got %d", len(dataset))
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := NewFileLoader(filepath.Join(t.TempDir(), "data.json")).Load(context.Background())
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected the underlying not-exist error, got %v", err)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.json")
		if err := os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		_, err := NewFileLoader(path).Load(context.Background())
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewFileLoader("testdata/data.json").Load(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestNewLoader(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{locator: "http://localhost:3000/data.json", want: "*mirrorplot.HTTPLoader"},
		{locator: "https://example.com/data.json", want: "*mirrorplot.HTTPLoader"},
		{locator: "data.json", want: "*mirrorplot.FileLoader"},
		{locator: "/srv/public/data.json", want: "*mirrorplot.FileLoader"},
		{locator: `C:\sim\data.json`, want: "*mirrorplot.FileLoader"},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			loader := NewLoader(tt.locator, nil)
			if got := typeName(loader); got != tt.want {
				t.Fatalf("NewLoader(%q) = %s, want %s", tt.locator, got, tt.want)
			}
			if loader.Locator() != tt.locator {
				t.Fatalf("Locator() = %q, want %q", loader.Locator(), tt.locator)
			}
		})
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *HTTPLoader:
		return "*mirrorplot.HTTPLoader"
	case *FileLoader:
		return "*mirrorplot.FileLoader"
	default:
		return "unknown"
	}
}
