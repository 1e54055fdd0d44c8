package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"battery-eval/internal/api/models"
	"battery-eval/internal/eval"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards connect from other origins; auth is out of scope here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is one frame of the evaluation progress stream.
type streamMessage struct {
	Type   string                 `json:"type"` // "trial" | "result" | "error"
	Trial  *eval.TrialEvent       `json:"trial,omitempty"`
	Result *eval.SubmissionResult `json:"result,omitempty"`
	Error  *models.ErrorDetail    `json:"error,omitempty"`
}

// StreamEvaluate handles GET /ws/evaluate: the client sends one
// EvaluateRequest frame, then receives a "trial" frame per completed trial
// and a final "result" frame.
func (h *EvaluateHandler) StreamEvaluate(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req models.EvaluateRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeStreamError(conn, "INVALID_REQUEST", err.Error())
		return
	}

	pol, harness, numRuns, params, errResp := h.prepare(req)
	if errResp != nil {
		writeStreamError(conn, errResp.Error.Code, errResp.Error.Message)
		return
	}

	// Trial events arrive from worker goroutines; gorilla connections
	// allow only one concurrent writer.
	var mu sync.Mutex
	harness.OnTrial = func(ev eval.TrialEvent) {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.WriteJSON(streamMessage{Type: "trial", Trial: &ev})
	}

	res := harness.Evaluate(c.Request.Context(), pol, numRuns, params)
	h.persist(req, res)

	mu.Lock()
	_ = conn.WriteJSON(streamMessage{Type: "result", Result: res})
	mu.Unlock()
}

func writeStreamError(conn *websocket.Conn, code, message string) {
	_ = conn.WriteJSON(streamMessage{
		Type:  "error",
		Error: &models.ErrorDetail{Code: code, Message: message},
	})
}
