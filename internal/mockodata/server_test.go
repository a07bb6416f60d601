package mockodata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	fx, err := LoadFixtures("testdata/fixtures.json")
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	s, err := NewServer(fx)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func fetchToken(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+ServicePath+"/", nil)
	req.Header.Set("X-CSRF-Token", "Fetch")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("token fetch: %v", err)
	}
	resp.Body.Close()
	token := resp.Header.Get("X-CSRF-Token")
	if token == "" {
		t.Fatal("no token issued")
	}
	return token
}

func postLogin(t *testing.T, ts *httptest.Server, token, user, password string) *http.Response {
	t.Helper()
	body := `<entry xmlns="http://www.w3.org/2005/Atom" xmlns:m="` + nsMetadata + `" xmlns:d="` + nsData + `"><content type="application/xml"><m:properties><d:Userid>` +
		user + `</d:Userid><d:Password>` + password + `</d:Password></m:properties></content></entry>`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+ServicePath+"/LoginSet", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/atom+xml")
	if token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sessionCookieFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestServer_Login(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name       string
		token      bool
		user       string
		password   string
		wantStatus int
	}{
		{name: "valid", token: true, user: "jsmith", password: "s3cret", wantStatus: http.StatusCreated},
		{name: "no csrf token", user: "jsmith", password: "s3cret", wantStatus: http.StatusForbidden},
		{name: "wrong password", token: true, user: "jsmith", password: "x", wantStatus: http.StatusUnauthorized},
		{name: "unknown user", token: true, user: "nobody", password: "s3cret", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := ""
			if tt.token {
				token = fetchToken(t, ts)
			}
			resp := postLogin(t, ts, token, tt.user, tt.password)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden && resp.Header.Get("X-CSRF-Token") != "Required" {
				t.Error("403 without X-CSRF-Token: Required")
			}
		})
	}
}

func TestServer_ReadCollection(t *testing.T) {
	s, ts := newTestServer(t)
	resp := postLogin(t, ts, fetchToken(t, ts), "JSMITH", "s3cret")
	cookie := sessionCookieFrom(t, resp)

	read := func(path string) *http.Response {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+ServicePath+path, nil)
		req.AddCookie(cookie)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("json with filter", func(t *testing.T) {
		filter := "Basicstartdate ge datetime'2026-06-01T00:00:00' and Basicstartdate lt datetime'2026-07-01T00:00:00'"
		resp := read("/PlannedOrderSet?$format=json&$filter=" + strings.ReplaceAll(filter, " ", "%20"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var body struct {
			D struct {
				Results []map[string]any `json:"results"`
			} `json:"d"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.D.Results) != 1 {
			t.Fatalf("results = %d, want 1", len(body.D.Results))
		}
		r := body.D.Results[0]
		if r["Basicstartdate"] != "/Date(1780272000000)/" {
			t.Errorf("Basicstartdate = %v", r["Basicstartdate"])
		}
	})

	t.Run("atom", func(t *testing.T) {
		resp := read("/ProductionOrderSet")
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/atom+xml") {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("unsupported filter", func(t *testing.T) {
		if resp := read("/PlannedOrderSet?$filter=Plant%20eq%20'1010'"); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown set", func(t *testing.T) {
		if resp := read("/NoSuchSet"); resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("simulated failure", func(t *testing.T) {
		s.Fail(ProductionOrderSet, http.StatusServiceUnavailable)
		defer s.Fail(ProductionOrderSet, 0)
		if resp := read("/ProductionOrderSet"); resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})
}

func TestServer_ReadRequiresLogin(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + ServicePath + "/PlannedOrderSet")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSampleFixtures(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	fx := SampleFixtures(now)
	if len(fx.Users) == 0 || len(fx.PlannedOrders) == 0 || len(fx.ProductionOrders) == 0 {
		t.Fatalf("empty sample fixtures: %+v", fx)
	}

	inMonth := 0
	for _, rec := range fx.PlannedOrders {
		if strings.HasPrefix(rec["Basicstartdate"], "2026-03-") {
			inMonth++
		}
	}
	if inMonth == 0 {
		t.Error("no planned order starts in the current month")
	}
}
