package controller

import (
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	CompletionService *service.CompletionService
}

func NewProgressController(completionService *service.CompletionService) *ProgressController {
	return &ProgressController{CompletionService: completionService}
}

// bindJSON 请求体格式错误统一转为 ValidationError
func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		util.RespondError(ctx, util.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// @Summary 报名课程
// @Description 为当前用户创建课程进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "课程ID"
// @Success 201 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/courses/{courseId}/enroll [post]
func (c *ProgressController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.CompletionService.Enroll(ctx.Request.Context(), user.UserID, ctx.Param("courseId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, progress)
}

// @Summary 获取课程进度
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.CompletionService.GetProgress(ctx.Request.Context(), user.UserID, ctx.Param("courseId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary 完成课时
// @Description 标记课时完成，未报名时自动报名
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param slug path string true "课时slug"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/lessons/{slug}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.CompletionService.CompleteLesson(ctx.Request.Context(), user.UserID, ctx.Param("slug"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 提交课时测验
// @Description 提交答案或分数，受每日测验次数限制
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "课时slug"
// @Param request body service.LessonQuizSubmission true "测验提交"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Failure 403 {object} util.Response
// @Router /api/lessons/{slug}/quiz [post]
func (c *ProgressController) SubmitLessonQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.LessonQuizSubmission
	if !bindJSON(ctx, &req) {
		return
	}

	result, err := c.CompletionService.CompleteLessonQuiz(ctx.Request.Context(), user.UserID, ctx.Param("slug"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type exerciseRequest struct {
	PointsEarned *int `json:"pointsEarned"`
}

// @Summary 提交练习得分
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "课时slug"
// @Param exerciseId path string true "练习ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{slug}/exercises/{exerciseId} [post]
func (c *ProgressController) RecordExercise(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req exerciseRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if req.PointsEarned == nil {
		util.RespondError(ctx, util.NewValidationError("pointsEarned", "pointsEarned is required"))
		return
	}

	entry, err := c.CompletionService.RecordExercise(ctx.Request.Context(), user.UserID,
		ctx.Param("slug"), ctx.Param("exerciseId"), *req.PointsEarned)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, entry)
}

// @Summary 提交章节测验
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "章节测验slug"
// @Param request body service.ChapterQuizSubmission true "测验提交"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Failure 403 {object} util.Response
// @Router /api/chapter-quizzes/{slug}/submit [post]
func (c *ProgressController) SubmitChapterQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ChapterQuizSubmission
	if !bindJSON(ctx, &req) {
		return
	}

	result, err := c.CompletionService.CompleteChapterQuiz(ctx.Request.Context(), user.UserID, ctx.Param("slug"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 提交期末考试
// @Description 不限次数，刷新最高分时重新发放奖励
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "考试slug"
// @Param request body service.ExamSubmission true "考试提交"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/exams/{slug}/submit [post]
func (c *ProgressController) SubmitFinalExam(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ExamSubmission
	if !bindJSON(ctx, &req) {
		return
	}

	result, err := c.CompletionService.CompleteFinalExam(ctx.Request.Context(), user.UserID, ctx.Param("slug"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取奖励账本
// @Description XP、宝石、等级、徽章和今日剩余测验次数
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Ledger}
// @Router /api/me/ledger [get]
func (c *ProgressController) GetLedger(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	ledger, err := c.CompletionService.GetLedger(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, ledger)
}

// @Summary 获取答题记录
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param limit query int false "返回数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/me/attempts [get]
func (c *ProgressController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit := 20
	if limitStr := ctx.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			util.Error(ctx, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = l
	}

	attempts, err := c.CompletionService.ListAttempts(ctx.Request.Context(), user.UserID, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}
