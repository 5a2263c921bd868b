package controller

import (
	"context"
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Catalog *service.CatalogService
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, catalog *service.CatalogService) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Catalog: catalog}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 和课程目录状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{
		"database": "up",
		"redis":    "disabled",
		"catalog":  gin.H{"courses": len(c.Catalog.Courses()), "loadedAt": c.Catalog.LoadedAt()},
	}

	if c.Redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		defer cancel()
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
