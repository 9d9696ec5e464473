package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPlatformClient_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"U123","displayName":"太郎"}`))
	}))
	defer srv.Close()

	c := NewPlatformClient(srv.URL, time.Second)

	profile, err := c.Verify(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if profile.UserID != "U123" || profile.DisplayName != "太郎" {
		t.Fatalf("unexpected profile: %#v", profile)
	}

	if _, err := c.Verify(context.Background(), "bad-token"); !errors.Is(err, ErrPlatformTokenRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestPlatformClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewPlatformClient(srv.URL, time.Second)
	_, err := c.Verify(context.Background(), "token")
	if err == nil || errors.Is(err, ErrPlatformTokenRejected) {
		t.Fatalf("expected a transport error distinct from rejection, got %v", err)
	}
}

func TestPlatformClient_MissingUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"displayName":"太郎"}`))
	}))
	defer srv.Close()

	c := NewPlatformClient(srv.URL, time.Second)
	if _, err := c.Verify(context.Background(), "token"); err == nil {
		t.Fatal("expected an error for a profile without a user id")
	}
}
