package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"devtalk/internal/entity"
	"devtalk/internal/usecase"
	apperrors "devtalk/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type HttpHandler struct {
	convUc    usecase.ConversationUsecase
	messageUc usecase.MessageUsecase
	userUc    usecase.UserUsecase
	logger    *zap.Logger
}

func NewHttpHandler(convUc usecase.ConversationUsecase, messageUc usecase.MessageUsecase, userUc usecase.UserUsecase, logger *zap.Logger) *HttpHandler {
	return &HttpHandler{
		convUc:    convUc,
		messageUc: messageUc,
		userUc:    userUc,
		logger:    logger,
	}
}

type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodePermissionDenied:
		return http.StatusForbidden
	case apperrors.CodeAlreadyExists, apperrors.CodeFailedPrecondition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *HttpHandler) writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeInternal {
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: code, Message: "internal server error"})
		return
	}
	writeJSON(w, statusForCode(code), ErrorResponse{Code: code, Message: err.Error()})
}

// Method Post /messages/send
func (h *HttpHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SenderId   int64  `json:"senderId"`
		ReceiverId int64  `json:"receiverId"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}

	callerId, ok := CallerId(r)
	if !ok || callerId != req.SenderId {
		h.writeError(w, apperrors.Forbidden("senders can only send their own messages"))
		return
	}

	view, err := h.messageUc.Send(r.Context(), req.SenderId, req.ReceiverId, req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: view})
}

// Method Get /messages/chats/{userId}
func (h *HttpHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	userId, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		h.writeError(w, apperrors.ErrInvalidUserId)
		return
	}

	callerId, ok := CallerId(r)
	if !ok || callerId != userId {
		h.writeError(w, apperrors.Forbidden("cannot list another user's conversations"))
		return
	}

	chats, err := h.convUc.Index(r.Context(), userId)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: chats})
}

// Method Get /messages/conversation?userId1={id1}&userId2={id2}
func (h *HttpHandler) GetMessagesBetweenUsers(w http.ResponseWriter, r *http.Request) {
	userId1, err1 := strconv.ParseInt(r.URL.Query().Get("userId1"), 10, 64)
	userId2, err2 := strconv.ParseInt(r.URL.Query().Get("userId2"), 10, 64)
	if err1 != nil || err2 != nil {
		h.writeError(w, apperrors.ErrInvalidUserId)
		return
	}

	callerId, ok := CallerId(r)
	if !ok || (callerId != userId1 && callerId != userId2) {
		h.writeError(w, apperrors.ErrNotParticipant)
		return
	}

	messages, err := h.messageUc.ListBetweenUsers(r.Context(), userId1, userId2)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: messages})
}

// Method Get /messages/conversation/{conversationId}
func (h *HttpHandler) GetConversationMessages(w http.ResponseWriter, r *http.Request) {
	conversationId := chi.URLParam(r, "conversationId")

	callerId, ok := CallerId(r)
	if !ok {
		h.writeError(w, apperrors.Forbidden("caller identity required"))
		return
	}

	messages, err := h.messageUc.ListConversation(r.Context(), conversationId, callerId)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: messages})
}

// Method Put /messages/read
func (h *HttpHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationId string `json:"conversationId"`
		ReaderId       int64  `json:"readerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidArg("invalid request body"))
		return
	}

	callerId, ok := CallerId(r)
	if !ok || callerId != req.ReaderId {
		h.writeError(w, apperrors.Forbidden("readers can only clear their own unread messages"))
		return
	}

	if err := h.messageUc.MarkRead(r.Context(), req.ConversationId, req.ReaderId); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "messages marked as read"})
}

// Method Put /messages/status/{userId}?status=
func (h *HttpHandler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	userId, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		h.writeError(w, apperrors.ErrInvalidUserId)
		return
	}

	callerId, ok := CallerId(r)
	if !ok || callerId != userId {
		h.writeError(w, apperrors.Forbidden("cannot change another user's status"))
		return
	}

	status := entity.UserStatus(r.URL.Query().Get("status"))
	if err := h.userUc.UpdateStatus(r.Context(), userId, status); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "status updated successfully"})
}

// Method Get /messages/status/{userId}
func (h *HttpHandler) GetUserStatus(w http.ResponseWriter, r *http.Request) {
	userId, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		h.writeError(w, apperrors.ErrInvalidUserId)
		return
	}

	status, err := h.userUc.GetStatus(r.Context(), userId)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Message: "success", Data: map[string]entity.UserStatus{"status": status}})
}
