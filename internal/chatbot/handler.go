package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/namdevyakhya-17/psycare/internal/identity"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

const maxBodyBytes = 64 << 10

// Handler wires POST /api/chat to the router service.
type Handler struct {
	service Responder
	logger  *logging.Logger
}

// Responder handles a chat request.
type Responder interface {
	Handle(ctx context.Context, req Request) (Result, error)
}

// NewHandler creates a chat handler.
func NewHandler(service Responder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type chatRequest struct {
	Message  string `json:"message"`
	Lang     string `json:"lang"`
	Location string `json:"location"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
		return
	}

	var body chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}

	res, err := h.service.Handle(r.Context(), Request{
		UserID:   userID,
		Message:  body.Message,
		Lang:     body.Lang,
		Location: body.Location,
	})
	if errors.Is(err, ErrMessageRequired) {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "Message is required"})
		return
	}
	if err != nil {
		h.logger.Error("chat request failed", "user_id", userID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "AI Chatbot error"})
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"AI Chatbot error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
