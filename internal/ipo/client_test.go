package ipo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCompaniesRelaysRawJSON(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/result/company/all" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"body":[{"id":1,"name":"Sample Hydro IPO"}]}`))
	}))
	defer upstream.Close()

	client := NewClient(upstream.URL, NewSessionCache(10, time.Minute))
	raw, err := client.Companies(context.Background())
	if err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if string(raw) != `{"body":[{"id":1,"name":"Sample Hydro IPO"}]}` {
		t.Errorf("relayed body = %s", raw)
	}
}

func TestCaptchaBindsSessionCookies(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/result/captcha/image/initial" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Add("Set-Cookie", "JSESSIONID=upstream-session")
		json.NewEncoder(w).Encode(map[string]string{"image": "data:image/png;base64,AAAA"})
	}))
	defer upstream.Close()

	sessions := NewSessionCache(10, time.Minute)
	client := NewClient(upstream.URL, sessions)

	image, err := client.Captcha(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Captcha: %v", err)
	}
	if image != "data:image/png;base64,AAAA" {
		t.Errorf("image = %q", image)
	}

	cookies, ok := sessions.Get("sess-1")
	if !ok {
		t.Fatal("session cookies not cached")
	}
	if len(cookies) != 1 || cookies[0] != "JSESSIONID=upstream-session" {
		t.Errorf("cookies = %v", cookies)
	}
}

func TestCaptchaRawBinaryFallback(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer upstream.Close()

	client := NewClient(upstream.URL, NewSessionCache(10, time.Minute))
	image, err := client.Captcha(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Captcha: %v", err)
	}
	if image != "data:image/png;base64,iVBORw==" {
		t.Errorf("image = %q", image)
	}
}

func TestCheckForwardsSessionCookie(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/result/result/check" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Cookie"); got != "JSESSIONID=abc" {
			t.Errorf("cookie = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if payload["boid"] != "1301230000001234" || payload["userCaptcha"] != "x7k2p" {
			t.Errorf("payload = %v", payload)
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "Congratulations! Alloted 10 units."})
	}))
	defer upstream.Close()

	sessions := NewSessionCache(10, time.Minute)
	sessions.Put("sess-1", []string{"JSESSIONID=abc"})
	client := NewClient(upstream.URL, sessions)

	result, err := client.Check(context.Background(), CheckRequest{
		SessionID:   "sess-1",
		BOID:        "1301230000001234",
		CompanyID:   42,
		CaptchaText: "x7k2p",
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Message != "Congratulations! Alloted 10 units." {
		t.Errorf("message = %q", result.Message)
	}
}

func TestCheckUnknownSession(t *testing.T) {
	client := NewClient("http://unused.invalid", NewSessionCache(10, time.Minute))
	_, err := client.Check(context.Background(), CheckRequest{SessionID: "nope"})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestCheckRejectionInvalidatesSession(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	sessions := NewSessionCache(10, time.Minute)
	sessions.Put("sess-1", []string{"JSESSIONID=abc"})
	client := NewClient(upstream.URL, sessions)

	_, err := client.Check(context.Background(), CheckRequest{SessionID: "sess-1"})
	if !errors.Is(err, ErrCheckRejected) {
		t.Fatalf("err = %v, want ErrCheckRejected", err)
	}

	// The session is burned; a retry needs a new captcha.
	if _, ok := sessions.Get("sess-1"); ok {
		t.Error("session should have been invalidated")
	}
	if _, err := client.Check(context.Background(), CheckRequest{SessionID: "sess-1"}); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired on retry", err)
	}
}
