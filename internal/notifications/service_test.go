package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"presswork/internal/config"
	"presswork/internal/logging"
	"presswork/internal/notifications"
	"presswork/internal/runstore"
)

func TestServiceIsNoopWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	cfg.Notifications.Errors = true
	svc := notifications.NewService(&cfg, logging.NewNop())

	// Must not panic or attempt network I/O.
	svc.RunFailed(context.Background(), &runstore.Run{ProductRef: "prod-1"}, "boom")
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification, got %v", err)
	}
}

func TestServiceFormatsTerminalEvents(t *testing.T) {
	tests := []struct {
		name           string
		fire           func(svc *notifications.Service)
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "completed",
			fire: func(svc *notifications.Service) {
				svc.RunCompleted(context.Background(), &runstore.Run{ProductRef: "widget-1"}, []string{"tiktok", "reels"})
			},
			expectTitle:   "Presswork - Published",
			expectMessage: "Published widget-1 to tiktok, reels",
			expectTags:    "presswork,publish,completed",
		},
		{
			name: "rejected",
			fire: func(svc *notifications.Service) {
				svc.RunRejected(context.Background(), &runstore.Run{ProductRef: "widget-2"}, "auto-blocked reference")
			},
			expectTitle:   "Presswork - Rejected",
			expectMessage: "Run for widget-2 rejected: auto-blocked reference",
			expectTags:    "presswork,compliance,rejected",
		},
		{
			name: "errored",
			fire: func(svc *notifications.Service) {
				svc.RunFailed(context.Background(), &runstore.Run{ProductRef: "widget-3"}, "store unavailable")
			},
			expectTitle:    "Presswork - Error",
			expectMessage:  "Run for widget-3 failed: store unavailable",
			expectTags:     "presswork,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.Completed = true
			cfg.Notifications.Rejected = true
			cfg.Notifications.Errors = true
			svc := notifications.NewService(&cfg, logging.NewNop())

			tc.fire(svc)

			if captured.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", captured.title, tc.expectTitle)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("message = %q, want %q", captured.body, tc.expectMessage)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", captured.tags, tc.expectTags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", captured.priority, tc.expectPriority)
			}
		})
	}
}

func TestDisabledEventClassIsSuppressed(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = false
	svc := notifications.NewService(&cfg, logging.NewNop())

	svc.RunCompleted(context.Background(), &runstore.Run{ProductRef: "widget-4"}, []string{"tiktok"})
	if hit {
		t.Fatal("completed notification sent despite toggle off")
	}
}
