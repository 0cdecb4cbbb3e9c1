package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meetingsense/console/internal/api"
)

func TestPollAttendancePrintsRosterOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/attendance" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","attendance":[{"name":"Ada","time":"09:00","status":"present"}],"summary":{"total":2,"present":1,"absent":1,"attendance_rate":50}}`))
	}))
	defer srv.Close()

	client := api.New(srv.URL, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		pollAttendance(ctx, client, &buf, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for hits.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("poll never reached the server")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	out := buf.String()
	if !strings.Contains(out, "roster: 1/2 present (50%)") {
		t.Fatalf("output = %q", out)
	}
	if strings.Count(out, "roster:") != 1 {
		t.Fatalf("unchanged summary was reprinted: %q", out)
	}
}
