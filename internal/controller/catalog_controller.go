package controller

import (
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	CatalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{CatalogService: catalogService}
}

// @Summary 获取课程结构
// @Tags 课程目录
// @Produce json
// @Security BearerAuth
// @Param idOrSlug path string true "课程ID或slug"
// @Success 200 {object} util.Response
// @Router /api/catalog/courses/{idOrSlug} [get]
func (c *CatalogController) GetCourse(ctx *gin.Context) {
	course, err := c.CatalogService.FindCourse(ctx.Param("idOrSlug"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 刷新课程目录
// @Description 重新加载内容仓库，校验失败时保留旧目录
// @Tags 课程目录
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/catalog/refresh [post]
func (c *CatalogController) Refresh(ctx *gin.Context) {
	count, err := c.CatalogService.Refresh(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"courses":  count,
		"loadedAt": c.CatalogService.LoadedAt(),
	})
}
