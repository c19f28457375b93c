package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/masumkhan081/socket-talk/internal/api"
	"github.com/masumkhan081/socket-talk/internal/auth"
	"github.com/masumkhan081/socket-talk/internal/chat"
	"github.com/masumkhan081/socket-talk/internal/config"
	"github.com/masumkhan081/socket-talk/internal/db"
	"github.com/masumkhan081/socket-talk/internal/email"
	myMiddleware "github.com/masumkhan081/socket-talk/internal/middleware"
	"github.com/masumkhan081/socket-talk/internal/notification"
	"github.com/masumkhan081/socket-talk/internal/post"
	"github.com/masumkhan081/socket-talk/internal/user"
)

func main() {
	cfg := config.Load()
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	log.Println("connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database schema initialized")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("connect to redis: %v", err)
	}
	log.Println("connected to Redis")

	tokens := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTRefreshSecret,
		"socket-talk", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mailer := email.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser,
		cfg.SMTPPass, cfg.MailFrom, cfg.ClientURL)

	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, tokens, mailer)
	userHandler := user.NewHandler(userService)

	notifRepo := notification.NewRepository(database.Conn)
	notifHandler := notification.NewHandler(notifRepo)

	postRepo := post.NewRepository(database.Conn)
	postService := post.NewService(postRepo, notifRepo)
	postHandler := post.NewHandler(postService)

	chatRepo := chat.NewRepository(database.Conn)
	chatService := chat.NewService(chatRepo, notifRepo, postRepo)

	hub := chat.NewHub(redisClient)
	go hub.Run()
	go hub.SubscribeToRedis()

	chatHandler := chat.NewHandler(chatService, hub)

	authMiddleware := myMiddleware.NewAuthMiddleware(userService)
	requireVerified := myMiddleware.RequireVerified(userService)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		api.OK(w, "ok", nil)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", userHandler.Signup)
		r.Post("/signin", userHandler.Signin)
		r.Post("/refresh", userHandler.Refresh)
		r.Post("/verify-email", userHandler.VerifyEmail)
		r.Post("/forgot-password", userHandler.ForgotPassword)
		r.Post("/reset-password", userHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handle)
			r.Post("/signout", userHandler.Signout)
			r.Get("/profile", userHandler.GetProfile)
			r.Patch("/profile", userHandler.UpdateProfile)
		})
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Use(requireVerified)

		r.Get("/conversations", chatHandler.ListConversations)
		r.Post("/conversations", chatHandler.CreateConversation)
		r.Get("/conversations/{conversationId}/messages", chatHandler.ListMessages)
		r.Post("/conversations/{conversationId}/messages", chatHandler.SendMessage)

		r.Post("/groups", chatHandler.CreateGroup)
		r.Patch("/groups/{groupId}", chatHandler.UpdateGroup)
		r.Delete("/groups/{groupId}/leave", chatHandler.LeaveGroup)
		r.Post("/groups/invite", chatHandler.InviteToGroup)
		r.Post("/groups/invitations/respond", chatHandler.RespondToInvitation)

		r.Get("/users/search", userHandler.SearchUsers)
		r.Get("/dashboard/stats", chatHandler.DashboardStats)
	})

	r.Route("/api/posts", func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Use(requireVerified)

		r.Get("/", postHandler.ListPosts)
		r.Post("/", postHandler.CreatePost)
		r.Post("/like", postHandler.LikePost)
		r.Post("/dislike", postHandler.DislikePost)

		r.Post("/comments", postHandler.CreateComment)
		r.Patch("/comments/{commentId}", postHandler.UpdateComment)
		r.Delete("/comments/{commentId}", postHandler.DeleteComment)
		r.Post("/comments/like", postHandler.LikeComment)
		r.Post("/comments/dislike", postHandler.DislikeComment)

		r.Get("/{postId}", postHandler.GetPost)
		r.Patch("/{postId}", postHandler.UpdatePost)
		r.Delete("/{postId}", postHandler.DeletePost)
		r.Get("/{postId}/comments", postHandler.ListComments)
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/", notifHandler.List)
		r.Patch("/{notificationId}/read", notifHandler.MarkRead)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/ws", chatHandler.ServeWs)
	})

	log.Printf("server starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal(err)
	}
}
