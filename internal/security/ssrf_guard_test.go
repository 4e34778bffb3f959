package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestNewSafeClientTimeout はタイムアウト設定が反映されることをテストする。
func TestNewSafeClientTimeout(t *testing.T) {
	guard := NewSSRFGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout, 1024)
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport")
	}
}

// TestNewSafeClientBlocksLoopback はループバックへのリクエストがブロックされることをテストする。
// httptestサーバーは127.0.0.1で起動されるため、safeurlがブロックする。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewSSRFGuard().NewSafeClient(5*time.Second, 1024)

	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestLimitedTransport_TruncatesBody はレスポンスボディが上限で打ち切られることをテストする。
func TestLimitedTransport_TruncatesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 100))
	}))
	defer ts.Close()

	client := &http.Client{Transport: &limitedTransport{base: http.DefaultTransport, limit: 10}}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if len(body) != 10 {
		t.Errorf("body length = %d, want 10", len(body))
	}
}

// TestValidateURL はURLの事前検証をテストする。
func TestValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"公開HTTPS", "https://blog.example.com/feed.xml", false},
		{"公開HTTP", "http://blog.example.com/rss", false},
		{"空URL", "", true},
		{"ftpスキーム", "ftp://example.com/feed", true},
		{"fileスキーム", "file:///etc/passwd", true},
		{"ホストなし", "https://", true},
		{"localhost", "http://LOCALHOST/feed", true},
		{"プライベートIP 10系", "http://10.0.0.1/feed", true},
		{"プライベートIP 192.168系", "http://192.168.1.10/feed", true},
		{"ループバック", "http://127.0.0.1:8000/feed", true},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data", true},
		{"ゼロアドレス", "http://0.0.0.0/", true},
		{"IPv6ループバック", "http://[::1]/feed", true},
		{"IPv4射影IPv6", "http://[::ffff:127.0.0.1]/feed", true},
		{"公開IP", "http://93.184.216.34/feed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
