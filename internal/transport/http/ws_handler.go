package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
)

type WSHandler struct {
	quizzes  *app.QuizService
	boards   *app.LeaderboardService
	roster   *app.RosterService
	upgrader websocket.Upgrader
}

func NewWSHandler(quizzes *app.QuizService, boards *app.LeaderboardService, roster *app.RosterService) *WSHandler {
	return &WSHandler{
		quizzes: quizzes,
		boards:  boards,
		roster:  roster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Quiz     string `json:"quiz"`
	Practice bool   `json:"practice"`
}

type answerPayload struct {
	Quiz   string `json:"quiz"`
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

type summaryPayload struct {
	Quiz string `json:"quiz"`
}

type nemesisPayload struct {
	CandidateID string `json:"candidateId"`
}

type questionView struct {
	Quiz  string `json:"quiz"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// and leaderboard use cases. The authenticated student id arrives from the
// identity layer in front of this handler; here it is a query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("studentId")
	if studentID == "" {
		http.Error(w, "missing studentId", http.StatusBadRequest)
		return
	}
	student, err := h.roster.Lookup(r.Context(), studentID)
	if err != nil {
		http.Error(w, "unknown student", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	if student.GroupID != nil {
		updates, cancel, err := h.boards.Subscribe(r.Context(), *student.GroupID)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			close(closeSignals)
			close(send)
			<-writerDone
			return
		}
		defer cancel()

		go func() {
			defer close(updatesDone)
			for {
				select {
				case update, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
	} else {
		close(updatesDone)
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, studentID, inbound, send)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, studentID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid start payload")
			return
		}
		question, total, err := h.quizzes.StartAttempt(ctx, studentID, payload.Quiz, payload.Practice)
		if errors.Is(err, domain.ErrQuizCompleted) {
			// Scored re-entry redirects to the completion view.
			h.sendSummary(ctx, studentID, payload.Quiz, send)
			return
		}
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "question", Payload: questionView{
			Quiz: payload.Quiz, Index: 0, Total: total, Text: question.Text,
		}}

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid answer payload")
			return
		}
		feedback, err := h.quizzes.SubmitAnswer(ctx, studentID, payload.Quiz, payload.Index, payload.Answer)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "feedback", Payload: feedback}
		if !feedback.Done {
			question, done, err := h.quizzes.QuestionAt(ctx, payload.Quiz, feedback.NextIndex)
			if err != nil || done {
				return
			}
			send <- outboundMessage[any]{Type: "question", Payload: questionView{
				Quiz: payload.Quiz, Index: feedback.NextIndex, Text: question.Text,
			}}
		}

	case "summary":
		var payload summaryPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid summary payload")
			return
		}
		h.sendSummary(ctx, studentID, payload.Quiz, send)

	case "dashboard":
		view, err := h.boards.Dashboard(ctx, studentID)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "dashboard", Payload: view}

	case "nemesis":
		var payload nemesisPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid nemesis payload")
			return
		}
		if err := h.boards.SetNemesis(ctx, studentID, payload.CandidateID); err != nil {
			send <- errMsg(err.Error())
			return
		}
		view, err := h.boards.NemesisComparison(ctx, studentID)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "nemesis", Payload: view}

	default:
		send <- errMsg("unsupported message type")
	}
}

func (h *WSHandler) sendSummary(ctx context.Context, studentID, quizName string, send chan<- outboundMessage[any]) {
	progress, err := h.quizzes.CompletionSummary(ctx, studentID, quizName)
	if err != nil {
		send <- errMsg(err.Error())
		return
	}
	send <- outboundMessage[any]{Type: "summary", Payload: progress}
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
