package api

import (
	"context"
	"net/http"
	"time"

	"mailboard-backend/internal/auth/delivery"
	authrepo "mailboard-backend/internal/auth/repository"
	authusecase "mailboard-backend/internal/auth/usecase"
	maildelivery "mailboard-backend/internal/mail/delivery"
	mailusecase "mailboard-backend/internal/mail/usecase"
	"mailboard-backend/internal/notification"
	"mailboard-backend/internal/realtime"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP surface of the service.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the gin engine with CORS and all routes mounted.
// pushStrategy may be nil when the pull mode is selected.
func NewServer(
	addr string,
	authUc authusecase.AuthUsecase,
	emailUc mailusecase.EmailUsecase,
	fcmRepo authrepo.FCMTokenRepository,
	hub *realtime.Hub,
	pushStrategy *notification.PushStrategy,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	authHandler := delivery.NewAuthHandler(authUc, fcmRepo)
	emailHandler := maildelivery.NewEmailHandler(emailUc)
	SetupRoutes(r, authHandler, emailHandler, authUc, emailUc, hub, pushStrategy)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
