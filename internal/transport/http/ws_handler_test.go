package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/app"
	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/Lambodaran/AgileProject-sub001/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketSessionFlow(t *testing.T) {
	engine := startEngine(t)
	wsHandler := NewWSHandler(engine, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?applicationId=app-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := readUntil(conn, t, "session")
	if payload["state"] != string(domain.SessionActive) {
		t.Fatalf("expected active session, got %v", payload["state"])
	}
	if remaining, _ := payload["remainingSeconds"].(float64); remaining != 1500 {
		t.Fatalf("expected 1500 seconds remaining, got %v", payload["remainingSeconds"])
	}

	for _, msg := range []map[string]any{
		{"type": "answer", "payload": map[string]any{"questionId": "q1", "optionIndex": 1}},
		{"type": "answer", "payload": map[string]any{"questionId": "q2", "optionIndex": 0}},
		{"type": "submit"},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write %v: %v", msg["type"], err)
		}
	}

	submitted := readUntil(conn, t, "submitted")
	if score, _ := submitted["score"].(float64); score != 100 {
		t.Fatalf("expected score 100, got %v", submitted["score"])
	}
	if passed, _ := submitted["passed"].(bool); !passed {
		t.Fatalf("expected passed, got %v", submitted["passed"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"questionId": "q1", "optionIndex": 0}}); err != nil {
		t.Fatalf("write late answer: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "view"}); err != nil {
		t.Fatalf("write view: %v", err)
	}
	view := readUntil(conn, t, "session")
	if view["state"] != string(domain.SessionSubmitted) {
		t.Fatalf("expected submitted view, got %v", view["state"])
	}
	answers, _ := view["answers"].(map[string]any)
	if len(answers) != 0 {
		t.Fatalf("expected answers cleared after submission, got %v", answers)
	}
}

func TestWebSocketRejectsUnavailableApplication(t *testing.T) {
	engine := startEngine(t)
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(engine, nil).ServeWS))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?applicationId=app-later", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload := readUntil(conn, t, "error")
	if msg, _ := payload["message"].(string); !strings.Contains(msg, "not available") {
		t.Fatalf("expected not available error, got %v", payload)
	}
}

func TestWebSocketRequiresApplicationID(t *testing.T) {
	engine := startEngine(t)
	rec := httptest.NewRecorder()
	NewWSHandler(engine, nil).ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func readUntil(conn *websocket.Conn, t *testing.T, expect string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type != expect {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode %s payload: %v", msg.Type, err)
		}
		return payload
	}
	t.Fatalf("no %s message received", expect)
	return nil
}

// startEngine runs an engine over in-memory adapters with the clock pinned
// five minutes into app-1's 14:00 to 14:30 window.
func startEngine(t *testing.T) *app.Engine {
	t.Helper()
	now := time.Date(2025, 3, 10, 14, 5, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.QuizSet{"set-1": sampleQuiz()}), time.Minute)
	apps := memory.NewApplicationDirectory(sampleApplications())
	engine := app.NewEngine(app.EngineConfig{Location: time.UTC}, app.Deps{
		Applications: apps,
		Questions:    quizzes,
		Scorer:       memory.NewScorer(apps, quizzes),
		Store:        memory.NewKVStoreWithClock(clock),
		Now:          clock,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if _, err := engine.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return engine
}

func sampleApplications() []domain.Application {
	return []domain.Application{
		{
			ID:     "app-1",
			Status: domain.StatusAccepted,
			ScheduledAssessment: &domain.ScheduledAssessment{
				QuizSetID:       "set-1",
				Title:           "Go fundamentals",
				Date:            "2025-03-10",
				StartTime:       "14:00",
				DurationMinutes: 30,
				PassPercentage:  50,
			},
		},
		{
			ID:     "app-later",
			Status: domain.StatusAccepted,
			ScheduledAssessment: &domain.ScheduledAssessment{
				QuizSetID:       "set-1",
				Title:           "Go fundamentals",
				Date:            "2025-03-10",
				StartTime:       "16:00",
				DurationMinutes: 30,
				PassPercentage:  50,
			},
		},
		{ID: "app-pending", Status: domain.StatusPending},
	}
}

func sampleQuiz() domain.QuizSet {
	return domain.QuizSet{
		ID:             "set-1",
		PassPercentage: 50,
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "Which keyword starts a goroutine?",
				Options: []domain.Option{
					{ID: "o1", Text: "defer"},
					{ID: "o2", Text: "go", Correct: true},
				},
			},
			{
				ID:   "q2",
				Text: "What does a nil map read return?",
				Options: []domain.Option{
					{ID: "o3", Text: "the zero value", Correct: true},
					{ID: "o4", Text: "a panic"},
				},
			},
		},
	}
}
