package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"imagestore/api/internal/config"
	"imagestore/api/internal/service"
)

type HandlerSet struct {
	log    zerolog.Logger
	cfg    *config.AppConfig
	images *service.ImageService
	db     *pgxpool.Pool
	cache  *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, images *service.ImageService, db *pgxpool.Pool, cache *redis.Client) HandlerSet {
	return HandlerSet{
		log:    log,
		cfg:    cfg,
		images: images,
		db:     db,
		cache:  cache,
	}
}

func (h HandlerSet) Register(router *gin.Engine) {
	router.GET("/", h.Health)

	images := router.Group("/images")
	{
		images.POST("", h.UploadImage)
		images.GET("/:id", h.GetImageMetadata)
		images.GET("/:id/file", h.GetImageFile)
	}
}
