package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestActivityStreamEmitsViewEvents(t *testing.T) {
	env := newTestEnv(t, []string{"a", "b"}, "LinkLIVE")
	link := createLink(t, env)
	cookie := grantAccess(t, env, link.LinkID)

	server := httptest.NewServer(env.handler)
	t.Cleanup(server.Close)

	streamResp, err := http.Get(server.URL + "/api/links/" + link.LinkID + "/activity")
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.realtime.SubscriberCount(link.LinkID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	trackReq, err := http.NewRequest(http.MethodPost, server.URL+"/api/view/"+link.LinkID+"/track", strings.NewReader(`{"slide_id":"b","duration_seconds":7}`))
	if err != nil {
		t.Fatalf("failed to construct track request: %v", err)
	}
	trackReq.Header.Set("Content-Type", "application/json")
	trackReq.AddCookie(cookie)
	trackResp, err := http.DefaultClient.Do(trackReq)
	if err != nil {
		t.Fatalf("track request failed: %v", err)
	}
	_ = trackResp.Body.Close()
	if trackResp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected track status: %d", trackResp.StatusCode)
	}

	type readResult struct {
		line string
		err  error
	}
	streamReader := bufio.NewReader(streamResp.Body)
	currentEventType := ""
	timeout := time.After(5 * time.Second)
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := streamReader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-timeout:
			t.Fatal("timed out waiting for activity event")
		case res := <-resultCh:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != RealtimeEventView {
				continue
			}
			var payload struct {
				SlideID         string  `json:"slideId"`
				Email           string  `json:"email"`
				DurationSeconds float64 `json:"durationSeconds"`
			}
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &payload); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if payload.SlideID != "b" || payload.Email != "viewer@example.com" || payload.DurationSeconds != 7 {
				t.Fatalf("unexpected event payload %+v", payload)
			}
			return
		}
	}
}
