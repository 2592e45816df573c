package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/nkoval/folio/internal/chat"
)

const maxChatBodySize = 64 << 10 // 64KB

// Answerer is the chat pipeline as the HTTP layer sees it.
type Answerer interface {
	Answer(ctx context.Context, message string, history []chat.Turn) (string, error)
}

type chatRequest struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func handleChat(svc Answerer, limiter *clientLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxChatBodySize)
		defer r.Body.Close()

		if !limiter.Allow(clientKey(r)) {
			httpError(w, http.StatusTooManyRequests, "too many requests, slow down")
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "message is required")
			return
		}

		reply, err := svc.Answer(r.Context(), req.Message, req.History)
		if err != nil {
			switch {
			case errors.Is(err, chat.ErrNotConfigured):
				httpError(w, http.StatusServiceUnavailable, "chat is not available")
			default:
				httpError(w, http.StatusBadGateway, "failed to generate response")
			}
			return
		}

		// Outcome only; message and history bodies are never logged.
		slog.Debug("chat reply sent", "reply_chars", len(reply))
		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}

// clientKey identifies a client for rate limiting by its remote IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
