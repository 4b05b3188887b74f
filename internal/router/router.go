package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/nilsonaj/racko-frontend/internal/config"
	"github.com/nilsonaj/racko-frontend/internal/handler"
	"github.com/nilsonaj/racko-frontend/internal/health"
	"github.com/nilsonaj/racko-frontend/internal/jwt"
	"github.com/nilsonaj/racko-frontend/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	jwtService *jwt.Service,
	gameHandler *handler.GameHandler,
	checker *health.Checker,
) *gin.Engine {
	gin.SetMode(cfg.HTTP.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))

	// 健康检查
	r.GET("/health", gin.WrapH(checker))
	r.GET("/ready", gin.WrapF(checker.Ready))

	// Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1
	v1 := r.Group("/api/v1")
	{
		games := v1.Group("/games")
		{
			// 创建与加入（无需令牌）
			games.POST("", gameHandler.Create)
			games.POST("/:code/join", gameHandler.Join)

			// 需要参与者令牌的接口
			seat := games.Group("/:code")
			seat.Use(middleware.JWTAuth(jwtService))
			{
				seat.GET("", gameHandler.Get)
				seat.GET("/stream", gameHandler.Stream)
				seat.GET("/rounds", gameHandler.Rounds)
				seat.POST("/draw", gameHandler.Draw)
				seat.POST("/place", gameHandler.Place)
				seat.POST("/discard", gameHandler.Discard)
				seat.POST("/undo", gameHandler.Undo)
				seat.POST("/new-round", gameHandler.NewRound)
			}
		}
	}

	return r
}
