package http

import (
	"net/http"

	wsDelivery "devtalk/internal/delivery/websocket"

	"github.com/go-chi/chi/v5"
)

func MapHttpRoutes(r *chi.Mux, httpHandler *HttpHandler, websocketHandler *wsDelivery.WebsocketHandler, authMiddleware *AuthMiddleware) {
	r.Handle("/ws/{userId}", http.HandlerFunc(websocketHandler.HandleWebSocket))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/api/messages", func(r chi.Router) {
			r.Post("/send", http.HandlerFunc(httpHandler.SendMessage))
			r.Get("/chats/{userId}", http.HandlerFunc(httpHandler.GetUserChats))
			r.Get("/conversation", http.HandlerFunc(httpHandler.GetMessagesBetweenUsers))
			r.Get("/conversation/{conversationId}", http.HandlerFunc(httpHandler.GetConversationMessages))
			r.Put("/read", http.HandlerFunc(httpHandler.MarkRead))
			r.Put("/status/{userId}", http.HandlerFunc(httpHandler.UpdateUserStatus))
			r.Get("/status/{userId}", http.HandlerFunc(httpHandler.GetUserStatus))
		})
	})
}
