package server

import (
	"encoding/json"
	"net/http"

	"github.com/Tyrowin/chatverse/internal/presence"
)

// deliverRequest is posted by the message API once a message is persisted.
type deliverRequest struct {
	Message presence.Message  `json:"message" validate:"required"`
	ChatID  presence.RoomID   `json:"chatId" validate:"required"`
	Members []presence.UserID `json:"members" validate:"required,min=1,dive,required"`
}

// readsRequest is posted when a user opens a chat and its unread messages are marked read.
type readsRequest struct {
	ChatID     presence.RoomID `json:"chatId" validate:"required"`
	MessageIDs []string        `json:"messageIds" validate:"required,min=1,dive,required"`
}

type deliverResponse struct {
	Success bool                    `json:"success"`
	Report  presence.DeliveryReport `json:"report"`
}

type readsResponse struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
}

// deliverHandler fans out a persisted message. The caller must be its sender.
func (s *Server) deliverHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req deliverRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message.Sender.ID != caller {
		writeError(w, http.StatusForbidden, "Sender does not match the authenticated user")
		return
	}

	report := s.fanout.Deliver(presence.Delivery{
		Message: req.Message,
		ChatID:  req.ChatID,
		Members: req.Members,
	}, nil)
	writeJSON(w, http.StatusOK, deliverResponse{Success: true, Report: report})
}

// readsHandler broadcasts one read update per message for the caller.
func (s *Server) readsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req readsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sent := s.fanout.ReadReceipts(req.ChatID, caller, req.MessageIDs)
	writeJSON(w, http.StatusOK, readsResponse{Success: true, Sent: sent})
}

// decodeBody reads and validates a JSON body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
