package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"hu-quiz-engine/internal/domain"
	"hu-quiz-engine/internal/engine"
	"github.com/gorilla/websocket"
)

type Handler struct {
	engine           *engine.Engine
	leaderboardLimit int
	upgrader         websocket.Upgrader
}

func NewHandler(eng *engine.Engine, leaderboardLimit int) *Handler {
	return &Handler{
		engine:           eng,
		leaderboardLimit: leaderboardLimit,
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

type chapterRef struct {
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
}

type answerPayload struct {
	Subject       string `json:"subject"`
	Chapter       string `json:"chapter"`
	QuestionIndex int    `json:"questionIndex"`
	OptionIndex   int    `json:"optionIndex"`
}

type chaptersPayload struct {
	Subject string `json:"subject"`
}

type leaderboardPayload struct {
	WindowDays int `json:"windowDays"`
}

type renderPayload struct {
	domain.RenderAction
	Text string `json:"text"`
}

type answerResult struct {
	Correct            bool   `json:"correct"`
	CorrectOptionIndex int    `json:"correctOptionIndex"`
	Explanation        string `json:"explanation,omitempty"`
}

type profilePayload struct {
	UserID     string `json:"userId"`
	TotalScore int    `json:"totalScore"`
	Rank       int    `json:"rank"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type noticePayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the per-connection session loop.
// The query string carries the user identity; the user row is upserted on
// connect so the leaderboard always has a display name to join against.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" || displayName == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if err := h.engine.RegisterUser(ctx, domain.User{
		ID:          userID,
		DisplayName: displayName,
		Handle:      r.URL.Query().Get("handle"),
	}); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "ready", Payload: profilePayload{UserID: userID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, userID, inbound, send)
	}

	close(send)
	<-writerDone
}

func (h *Handler) dispatch(ctx context.Context, userID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	switch inbound.Type {
	case "subjects":
		subjects, err := h.engine.ListSubjects(ctx)
		if err != nil {
			send <- errMsg(err)
			return
		}
		send <- outboundMessage[any]{Type: "subjects", Payload: subjects}

	case "chapters":
		var payload chaptersPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg(errors.New("invalid chapters payload"))
			return
		}
		chapters, err := h.engine.ListChapters(ctx, payload.Subject)
		if err != nil {
			send <- errMsg(err)
			return
		}
		send <- outboundMessage[any]{Type: "chapters", Payload: chapters}

	case "start":
		var payload chapterRef
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg(errors.New("invalid start payload"))
			return
		}
		action, err := h.engine.StartOrResume(ctx, userID, domain.ChapterID(payload.Subject, payload.Chapter))
		if err != nil {
			send <- errMsg(err)
			return
		}
		send <- renderMsg(action)

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg(errors.New("invalid answer payload"))
			return
		}
		chapterID := domain.ChapterID(payload.Subject, payload.Chapter)
		outcome, err := h.engine.SubmitAnswer(ctx, userID, chapterID, payload.QuestionIndex, payload.OptionIndex)
		if errors.Is(err, domain.ErrStaleAnswer) {
			// Double-tap or late press on an advanced question. Nothing was
			// scored; tell the client softly instead of erroring.
			send <- outboundMessage[any]{Type: "alreadyAnswered", Payload: noticePayload{
				Message: "that question has already been answered",
			}}
			return
		}
		if err != nil {
			send <- errMsg(err)
			return
		}
		send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
			Correct:            outcome.Correct,
			CorrectOptionIndex: outcome.CorrectOptionIndex,
			Explanation:        outcome.Explanation,
		}}
		send <- renderMsg(outcome.Next)

	case "retake":
		var payload chapterRef
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg(errors.New("invalid retake payload"))
			return
		}
		action, err := h.engine.Retake(ctx, userID, domain.ChapterID(payload.Subject, payload.Chapter))
		if err != nil {
			send <- errMsg(err)
			return
		}
		send <- renderMsg(action)

	case "profile":
		total, rank, err := h.engine.Profile(ctx, userID)
		if err != nil {
			send <- errMsg(err)
			return
		}
		send <- outboundMessage[any]{Type: "profile", Payload: profilePayload{
			UserID:     userID,
			TotalScore: total,
			Rank:       rank,
		}}

	case "leaderboard":
		var payload leaderboardPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(errors.New("invalid leaderboard payload"))
				return
			}
		}
		windowStart := time.Time{}
		if payload.WindowDays > 0 {
			windowStart = time.Now().AddDate(0, 0, -payload.WindowDays)
		}
		entries, err := h.engine.Leaderboard(ctx, windowStart, h.leaderboardLimit)
		if err != nil {
			send <- errMsg(err)
			return
		}
		send <- outboundMessage[any]{Type: "leaderboard", Payload: entries}

	default:
		send <- errMsg(errors.New("unsupported message type"))
	}
}

func renderMsg(action domain.RenderAction) outboundMessage[any] {
	return outboundMessage[any]{Type: string(action.Kind), Payload: renderPayload{
		RenderAction: action,
		Text:         RenderText(action),
	}}
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
