package updater

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeVersion_StripsV(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"v1.2.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{"", ""},
		{"v", ""},
		{"vv1.0.0", "v1.0.0"}, // only strips one leading v
	}

	for _, tt := range tests {
		if got := normalizeVersion(tt.input); got != tt.want {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{"newer patch", "0.2.0", "0.2.1", true},
		{"newer minor", "0.2.0", "0.3.0", true},
		{"newer major", "0.2.0", "1.0.0", true},
		{"same version", "0.2.0", "0.2.0", false},
		{"older version", "0.3.0", "0.2.0", false},
		{"empty current", "", "0.2.0", false},
		{"empty latest", "0.2.0", "", false},
		{"dev current", "dev", "0.2.0", false},
		{"two part version", "0.2", "0.3.0", true},
		{"minor jump", "0.9.0", "0.10.0", true},
		{"prerelease is older", "1.0.0", "1.0.0-rc.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNewer(tt.current, tt.latest); got != tt.want {
				t.Errorf("isNewer(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

// newTestChecker serves release with statusCode and returns a Checker
// pointed at it.
func newTestChecker(t *testing.T, release ReleaseInfo, statusCode int) *Checker {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Errorf("missing User-Agent")
		}
		w.WriteHeader(statusCode)
		if statusCode == http.StatusOK {
			_ = json.NewEncoder(w).Encode(release)
		}
	}))
	t.Cleanup(ts.Close)
	return &Checker{Endpoint: ts.URL, Client: ts.Client()}
}

func TestCheck_UpdateAvailable(t *testing.T) {
	release := ReleaseInfo{
		TagName: "v0.3.0",
		HTMLURL: "https://github.com/HendryAvila/openspec/releases/tag/v0.3.0",
	}
	c := newTestChecker(t, release, http.StatusOK)

	result, err := c.Check(context.Background(), "v0.2.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.UpdateAvailable {
		t.Error("expected UpdateAvailable to be true")
	}
	if result.LatestVersion != "0.3.0" || result.CurrentVersion != "0.2.0" {
		t.Errorf("versions = %q/%q", result.CurrentVersion, result.LatestVersion)
	}
	if result.ReleaseURL != release.HTMLURL {
		t.Errorf("ReleaseURL = %q", result.ReleaseURL)
	}
}

func TestCheck_AlreadyLatest(t *testing.T) {
	c := newTestChecker(t, ReleaseInfo{TagName: "v0.2.0"}, http.StatusOK)

	result, err := c.Check(context.Background(), "0.2.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.UpdateAvailable {
		t.Error("expected UpdateAvailable to be false when already at latest")
	}
}

func TestCheck_DevVersion(t *testing.T) {
	c := newTestChecker(t, ReleaseInfo{TagName: "v0.3.0"}, http.StatusOK)

	result, err := c.Check(context.Background(), "dev")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.UpdateAvailable {
		t.Error("dev builds never report updates")
	}
}

func TestCheck_APIErrorStatus(t *testing.T) {
	c := newTestChecker(t, ReleaseInfo{}, http.StatusForbidden)

	result, err := c.Check(context.Background(), "v0.2.0")
	if err == nil {
		t.Fatal("expected an error for a 403")
	}
	if result == nil || result.CurrentVersion != "0.2.0" {
		t.Errorf("result should still carry the current version: %+v", result)
	}
}

func TestCheck_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close()
	c := &Checker{Endpoint: ts.URL, Client: ts.Client()}

	if _, err := c.Check(context.Background(), "v0.2.0"); err == nil {
		t.Fatal("expected an error from a closed server")
	}
}
