package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_CreateTask(t *testing.T) {
	var got CreateTaskRequest
	var cookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if c, err := r.Cookie("session"); err == nil {
			cookie = c.Value
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id":"abc123"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "s3cret")
	id, err := c.CreateTask(context.Background(), CreateTaskRequest{
		YoutubeURL: "https://www.youtube.com/watch?v=xyz",
		Language:   "zh-CN",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if id != "abc123" {
		t.Errorf("task id = %q", id)
	}
	if got.YoutubeURL != "https://www.youtube.com/watch?v=xyz" || got.Language != "zh-CN" {
		t.Errorf("request body = %+v", got)
	}
	if cookie != "s3cret" {
		t.Errorf("session cookie = %q", cookie)
	}
}

func TestClient_CreateTaskErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, ``, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
		{"detail message", http.StatusTooManyRequests, `{"detail":"daily limit reached"}`, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode == 429 && strings.Contains(err.Error(), "daily limit reached")
		}},
		{"missing task id", http.StatusOK, `{}`, func(err error) bool { return err != nil && strings.Contains(err.Error(), "task id") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "").CreateTask(context.Background(), CreateTaskRequest{})
			if !tt.wantErr(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClient_StatusStrategiesSubtitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks/t1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"strategies_ready","progress":0.2}`))
	})
	mux.HandleFunc("/api/tasks/t1/strategies", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"strategies":["a","b"]}`))
	})
	mux.HandleFunc("/api/subtitles/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"))
	})
	mux.HandleFunc("/api/tasks/t2/status", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "")
	ctx := context.Background()

	st, err := c.TaskStatus(ctx, "t1")
	if err != nil {
		t.Fatalf("TaskStatus: %v", err)
	}
	if st.Status != "strategies_ready" || st.Progress != 0.2 {
		t.Errorf("status = %+v", st)
	}

	strat, err := c.Strategies(ctx, "t1")
	if err != nil || len(strat.Strategies) != 2 {
		t.Fatalf("Strategies = %+v, %v", strat, err)
	}

	srt, err := c.Subtitle(ctx, "t1")
	if err != nil || !strings.Contains(srt, "hi") {
		t.Fatalf("Subtitle = %q, %v", srt, err)
	}

	_, err = c.TaskStatus(ctx, "t2")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("TaskStatus(t2) err = %v, want 502 StatusError", err)
	}
}
