package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nliest/converse-be/internal/api/handlers"
	"github.com/nliest/converse-be/internal/auth"
	"github.com/nliest/converse-be/internal/config"
	"github.com/nliest/converse-be/internal/services"
	"github.com/nliest/converse-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	cfg *config.Config,
	hub *websocket.Hub,
	tokens *auth.TokenService,
	userService services.UserServiceProvider,
	chatService services.ChatServiceProvider,
	assistantService services.AssistantServiceProvider,
	eventService services.EventServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, tokens, eventService)
	chatHandler := handlers.NewChatHandler(chatService, assistantService, eventService, hub, cfg.IsDevelopment())
	systemHandler := handlers.NewSystemHandler(eventService)
	wsHandler := handlers.NewWebSocketHandler(hub, tokens, userService)

	requireAuth := tokens.Middleware(userService)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", systemHandler.Health)

		// Live event feed; authenticates inside the handler because
		// browser websocket clients pass the token as a query param.
		r.Get("/ws", wsHandler.Serve)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.With(requireAuth).Get("/profile", userHandler.GetProfile)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/conversations", chatHandler.CreateConversation)
			r.Get("/conversations", chatHandler.GetConversations)
			r.Get("/conversations/{conversationId}/messages", chatHandler.GetMessages)
			r.Delete("/conversations/{conversationId}", chatHandler.DeleteConversation)
			r.Post("/send", chatHandler.SendMessage)
		})

		r.With(requireAuth).Get("/events", systemHandler.GetEvents)
	})

	return r
}
