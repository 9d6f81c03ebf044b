package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/profile-sync/internal/container"
	handlers "github.com/oksasatya/profile-sync/internal/interface/http"
	"github.com/oksasatya/profile-sync/internal/interface/middleware"
	"github.com/oksasatya/profile-sync/internal/infrastructure/redisstore"
	"github.com/oksasatya/profile-sync/pkg/helpers"
)

// ProfileModule wires the profile handlers behind session auth.
// Protected: GET/PUT /api/profile, POST /api/profile/avatar,
// GET/PUT/DELETE /api/profile/consent, GET /api/profiles/search
type ProfileModule struct {
	Handler  *handlers.ProfileHandler
	Sessions *redisstore.SessionStore
	JWT      *helpers.JWTManager
}

func NewProfileModule(h *handlers.ProfileHandler, sessions *redisstore.SessionStore, jwt *helpers.JWTManager) *ProfileModule {
	return &ProfileModule{Handler: h, Sessions: sessions, JWT: jwt}
}

func (m *ProfileModule) Name() string { return "profile" }

func (m *ProfileModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Sessions, m.JWT))
	auth.Use(
		middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/profile", m.Handler.GetProfile)
		auth.PUT("/profile", m.Handler.UpdateProfile)
		// Uploads are heavier; 10 avatar attempts per user per minute
		auth.POST("/profile/avatar",
			middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByUserID(), nil),
			m.Handler.UploadAvatar,
		)
		auth.GET("/profile/consent", m.Handler.GetConsent)
		auth.PUT("/profile/consent", m.Handler.UpdateConsent)
		auth.DELETE("/profile/consent", m.Handler.RevokeConsent)
		auth.GET("/profiles/search",
			middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIPAndPath(), nil),
			m.Handler.Search,
		)
	}
}
