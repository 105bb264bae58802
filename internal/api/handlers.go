// internal/api/handlers.go
package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/videoxlab/videox/internal/config"
	"github.com/videoxlab/videox/internal/models"
	"github.com/videoxlab/videox/internal/services"
)

// Handler API处理器：界面与编辑会话核心之间的薄HTTP层
type Handler struct {
	projects *services.ProjectService
	session  *services.SessionService
	extract  *services.ExtractService
	llm      *services.LLMService
	hub      *MessageHub
	resp     *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	projects *services.ProjectService,
	session *services.SessionService,
	extract *services.ExtractService,
	llmService *services.LLMService,
	hub *MessageHub,
) *Handler {
	return &Handler{
		projects: projects,
		session:  session,
		extract:  extract,
		llm:      llmService,
		hub:      hub,
		resp:     NewResponseHelper(),
	}
}

// parseIDParam 解析路径中的数字ID
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// --- 项目 ---

// ListProjects GET /api/projects
func (h *Handler) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, projects)
}

// CreateProject POST /api/projects
func (h *Handler) CreateProject(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "请求体缺少项目名称")
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), req.Name)
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Created(c, project)
}

// DeleteProject DELETE /api/projects/:id
func (h *Handler) DeleteProject(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		h.resp.BadRequest(c, "无效的项目ID")
		return
	}

	if err := h.projects.DeleteProject(c.Request.Context(), projectID); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, nil, "项目已删除")
}

// LoadProject POST /api/projects/:id/load
func (h *Handler) LoadProject(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		h.resp.BadRequest(c, "无效的项目ID")
		return
	}

	if err := h.session.LoadProject(c.Request.Context(), projectID); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, h.sessionSnapshot())
}

// --- 会话 ---

// sessionSnapshot 当前会话状态的只读视图
func (h *Handler) sessionSnapshot() gin.H {
	return gin.H{
		"project_id": h.session.ProjectID(),
		"shots":      h.session.Shots(),
		"script":     h.session.Script(),
		"characters": h.session.Characters(),
		"messages":   h.session.Messages(),
	}
}

// GetSession GET /api/session
func (h *Handler) GetSession(c *gin.Context) {
	if !h.session.Loaded() {
		h.resp.BadRequest(c, "尚未加载项目")
		return
	}
	h.resp.Success(c, h.sessionSnapshot())
}

// --- 分镜 ---

// MutateShot PATCH /api/shots/:id
// 乐观更新立即生效，持久化在防抖窗口到期后发生
func (h *Handler) MutateShot(c *gin.Context) {
	shotID, ok := parseIDParam(c, "id")
	if !ok {
		h.resp.BadRequest(c, "无效的分镜ID")
		return
	}

	var patch models.ShotPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.resp.BadRequest(c, "无效的分镜补丁")
		return
	}

	if err := h.session.MutateShotLocal(shotID, patch); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"shots": h.session.Shots()})
}

// FlushShot POST /api/shots/:id/flush
// 失焦时取消防抖并立即保存
func (h *Handler) FlushShot(c *gin.Context) {
	shotID, ok := parseIDParam(c, "id")
	if !ok {
		h.resp.BadRequest(c, "无效的分镜ID")
		return
	}

	var patch models.ShotPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		// flush可以不携带补丁，只保存当前合并状态
		patch = models.ShotPatch{}
	}

	if err := h.session.FlushShotSave(shotID, patch); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"shots": h.session.Shots()})
}

// InsertShot POST /api/shots/insert
func (h *Handler) InsertShot(c *gin.Context) {
	var req struct {
		ReferenceShotID int64  `json:"reference_shot_id" binding:"required"`
		Position        string `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "请求体缺少参考分镜或插入位置")
		return
	}

	shots, err := h.session.InsertShot(c.Request.Context(), req.ReferenceShotID, req.Position)
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"shots": shots})
}

// AppendShot POST /api/shots
func (h *Handler) AppendShot(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "无效的请求体")
		return
	}

	shots, err := h.session.AppendShot(c.Request.Context(), req.Content)
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"shots": shots})
}

// DeleteShot DELETE /api/shots/:id
func (h *Handler) DeleteShot(c *gin.Context) {
	shotID, ok := parseIDParam(c, "id")
	if !ok {
		h.resp.BadRequest(c, "无效的分镜ID")
		return
	}

	shots, err := h.session.DeleteShot(c.Request.Context(), shotID)
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"shots": shots})
}

// DeleteAllShots DELETE /api/shots?confirm=true
// 二次确认由调用方完成，confirm 参数是确认完成的凭证
func (h *Handler) DeleteAllShots(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"

	if err := h.session.DeleteAllShots(c.Request.Context(), confirmed); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, h.sessionSnapshot(), "分镜已清空")
}

// --- 脚本 / 角色 ---

// UpdateScript PUT /api/script （仅本地，显式保存见 SaveScript）
func (h *Handler) UpdateScript(c *gin.Context) {
	var req struct {
		Script string `json:"script"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "无效的请求体")
		return
	}

	h.session.UpdateScript(req.Script)
	h.resp.Success(c, nil)
}

// SaveScript POST /api/script/save
func (h *Handler) SaveScript(c *gin.Context) {
	if err := h.session.SaveScript(c.Request.Context()); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, nil, "脚本已保存")
}

// UpdateCharacters PUT /api/characters （仅本地，显式保存见 SaveCharacters）
func (h *Handler) UpdateCharacters(c *gin.Context) {
	var req struct {
		Characters models.CharacterMap `json:"characters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "无效的请求体")
		return
	}

	h.session.UpdateCharacters(req.Characters)
	h.resp.Success(c, nil)
}

// SaveCharacters POST /api/characters/save
func (h *Handler) SaveCharacters(c *gin.Context) {
	if err := h.session.SaveCharacters(c.Request.Context()); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, h.session.Characters(), "角色表已保存")
}

// --- 抽取 ---

// ExtractCharacters POST /api/extract/characters
func (h *Handler) ExtractCharacters(c *gin.Context) {
	extracted, err := h.extract.ExtractCharacters(c.Request.Context())
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, gin.H{
		"extracted":  extracted,
		"characters": h.session.Characters(),
	})
}

// ExtractStoryboard POST /api/extract/storyboard
func (h *Handler) ExtractStoryboard(c *gin.Context) {
	shots, err := h.extract.ExtractStoryboard(c.Request.Context())
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, gin.H{"shots": shots})
}

// --- 设置 / 状态 ---

// GetStatus GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	cfg := config.GetCurrentConfig()
	h.resp.Success(c, gin.H{
		"llm_provider": cfg.LLMProvider,
		"llm_ready":    h.llm.Ready(),
		"ready_state":  h.llm.ReadyState(),
		"loaded":       h.session.Loaded(),
		"project_id":   h.session.ProjectID(),
	})
}

// UpdateLLMSettings PUT /api/settings/llm
// 配置变更后失效已缓存的提供者客户端
func (h *Handler) UpdateLLMSettings(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider"`
		Config   map[string]string `json:"config"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "无效的请求体")
		return
	}

	previous := config.GetCurrentConfig().LLMProvider
	providerChanged, err := config.UpdateLLMConfig(req.Provider, req.Config)
	if err != nil {
		h.resp.HandleError(c, err)
		return
	}

	// 任何配置字段变化都可能影响已初始化的客户端，保守地全部失效
	h.llm.InvalidateProvider(previous)
	if providerChanged {
		h.llm.InvalidateProvider(req.Provider)
	}

	h.resp.Success(c, gin.H{"llm_ready": h.llm.Ready()}, "设置已更新")
}

// UpdatePrompts PUT /api/settings/prompts
func (h *Handler) UpdatePrompts(c *gin.Context) {
	var req struct {
		CharacterPrompt  *string `json:"character_prompt"`
		StoryboardPrompt *string `json:"storyboard_prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.resp.BadRequest(c, "无效的请求体")
		return
	}

	if err := config.UpdatePrompts(req.CharacterPrompt, req.StoryboardPrompt); err != nil {
		h.resp.HandleError(c, err)
		return
	}
	h.resp.Success(c, nil, "提示词已更新")
}
