package httpapi

import (
	"context"

	"newsdesk/internal/adapters/httpapi/middleware"
	postapp "newsdesk/internal/core/post/service"
	userapp "newsdesk/internal/core/user/service"
	postPort "newsdesk/internal/ports/post"
	userPort "newsdesk/internal/ports/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UserUseCase: اینترفیسِ لازم برای کنترلر/روتر (Inbound Port)
type UserUseCase interface {
	LoginUser(ctx context.Context, username, password string) (*userPort.LoginResponse, error)
	RegisterUser(ctx context.Context, in userapp.RegisterInput) (*userPort.UserDTO, error)
	SetAutoPublish(ctx context.Context, id string, enabled bool) (*userPort.UserDTO, error)
}

type PostUseCase interface {
	CreatePost(ctx context.Context, in postPort.CreatePostInput) (*postPort.CreatePostResult, error)
	GetPost(ctx context.Context, id string) (*postPort.PostDTO, error)
	ListPosts(ctx context.Context, status string, page, limit int) (*postPort.PostListDTO, error)
	UpdatePost(ctx context.Context, id string, in postPort.UpdatePostInput) (*postPort.PostDTO, error)
	PublishPost(ctx context.Context, id string) (*postPort.PostDTO, error)
	ArchivePost(ctx context.Context, id string) (*postPort.PostDTO, error)
	DeletePost(ctx context.Context, id string) error
}

type SettingUseCase interface {
	GetModerationPrompt(ctx context.Context) (string, error)
	SetModerationPrompt(ctx context.Context, prompt string) error
}

type FeedUseCase interface {
	RSS(ctx context.Context) ([]byte, error)
}

var (
	_ PostUseCase = (*postapp.PostService)(nil)
	_ UserUseCase = (*userapp.UserService)(nil)
)

type RouterConfig struct {
	JWTSecret    []byte
	IngestKeys   []string
	AllowOrigins []string
	HealthChecks map[string]HealthCheck
	Logger       *zap.Logger
}

// فقط روتینگ: UseCase از بیرون تزریق می‌شود
func SetupRoutes(
	cfg RouterConfig,
	userUC UserUseCase,
	postUC PostUseCase,
	settingUC SettingUseCase,
	feedUC FeedUseCase,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	uc := NewUserController(userUC)
	pc := NewPostController(postUC)
	sc := NewSettingController(settingUC)
	fc := NewFeedController(feedUC)
	hc := NewHealthController(cfg.HealthChecks)

	// مسیرهای عمومی بدون JWT Middleware
	r.POST("/register", uc.RegisterUser)
	r.POST("/login", uc.LoginUser)
	r.GET("/rss.xml", fc.RSS)
	r.GET("/health", hc.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ingestion با X-API-Key
	r.POST("/api/ingest", middleware.APIKeyAuth(cfg.IngestKeys), pc.IngestPost)

	// پنل مدیریت با JWT Middleware
	admin := r.Group("/admin", middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		admin.GET("/posts", pc.ListPosts)
		admin.GET("/posts/:id", pc.GetPost)
		admin.PUT("/posts/:id", pc.UpdatePost)
		admin.DELETE("/posts/:id", pc.DeletePost)
		admin.POST("/posts/:id/publish", pc.PublishPost)
		admin.POST("/posts/:id/archive", pc.ArchivePost)

		admin.GET("/settings/moderation-prompt", sc.GetModerationPrompt)
		admin.PUT("/settings/moderation-prompt", sc.SetModerationPrompt)

		admin.PUT("/users/:id/auto-publish", uc.SetAutoPublish)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}
