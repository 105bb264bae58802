// internal/gateway/http_gateway.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/videoxlab/videox/internal/models"
)

// HTTPGateway 持久化网关的 HTTP 实现
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway 创建 HTTP 网关客户端
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// doJSON 发送 JSON 请求并解码响应，out 为 nil 时忽略响应体
func (g *HTTPGateway) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	reqURL := g.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("网关返回异常状态 %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析网关响应失败: %w", err)
	}
	return nil
}

func projectQuery(projectID int64) url.Values {
	return url.Values{"project_id": []string{fmt.Sprintf("%d", projectID)}}
}

// ListProjects 获取所有项目
func (g *HTTPGateway) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := g.doJSON(ctx, http.MethodGet, "/projects", nil, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject 创建项目
func (g *HTTPGateway) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	var project models.Project
	body := map[string]string{"name": name}
	if err := g.doJSON(ctx, http.MethodPost, "/projects", nil, body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject 删除项目
func (g *HTTPGateway) DeleteProject(ctx context.Context, projectID int64) error {
	return g.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d", projectID), nil, nil, nil)
}

// FetchProjectState 拉取项目完整可编辑状态（分镜按 order 排序返回）
func (g *HTTPGateway) FetchProjectState(ctx context.Context, projectID int64) (*models.ProjectState, error) {
	var state models.ProjectState
	if err := g.doJSON(ctx, http.MethodGet, "/shots", projectQuery(projectID), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// shotListResponse 网关所有改动分镜列表的操作都返回完整的重排后列表
type shotListResponse struct {
	Shots []models.Shot `json:"shots"`
}

// decodeShotList 网关历史上返回过裸数组和 {shots: []} 两种形式，都接受
func decodeShotList(raw json.RawMessage) ([]models.Shot, error) {
	var shots []models.Shot
	if err := json.Unmarshal(raw, &shots); err == nil {
		return shots, nil
	}

	var wrapped shotListResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("解析分镜列表失败: %w", err)
	}
	return wrapped.Shots, nil
}

// CreateShot 在末尾创建新分镜，返回重排后的完整列表
func (g *HTTPGateway) CreateShot(ctx context.Context, projectID int64, content string) ([]models.Shot, error) {
	var raw json.RawMessage
	body := map[string]string{"content": content}
	if err := g.doJSON(ctx, http.MethodPost, "/shots", projectQuery(projectID), body, &raw); err != nil {
		return nil, err
	}
	return decodeShotList(raw)
}

// UpdateShot 更新单个分镜，发送合并后的完整记录
func (g *HTTPGateway) UpdateShot(ctx context.Context, projectID int64, shot models.Shot) error {
	body := map[string]interface{}{
		"content":    shot.Content,
		"t2i_prompt": shot.T2IPrompt,
		"characters": shot.Characters,
	}
	path := fmt.Sprintf("/shots/%d", shot.ShotID)
	return g.doJSON(ctx, http.MethodPut, path, projectQuery(projectID), body, nil)
}

// DeleteShot 删除分镜，返回重排后的完整列表
func (g *HTTPGateway) DeleteShot(ctx context.Context, projectID, shotID int64) ([]models.Shot, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/shots/%d", shotID)
	if err := g.doJSON(ctx, http.MethodDelete, path, projectQuery(projectID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeShotList(raw)
}

// InsertShot 在参考分镜上方/下方插入新分镜，返回重排后的完整列表
func (g *HTTPGateway) InsertShot(ctx context.Context, projectID, referenceShotID int64, position, content string) ([]models.Shot, error) {
	var raw json.RawMessage
	body := map[string]interface{}{
		"reference_shot_id": referenceShotID,
		"position":          position,
		"content":           content,
	}
	if err := g.doJSON(ctx, http.MethodPost, "/shots/insert", projectQuery(projectID), body, &raw); err != nil {
		return nil, err
	}
	return decodeShotList(raw)
}

// DeleteAllShots 清空项目内所有分镜
func (g *HTTPGateway) DeleteAllShots(ctx context.Context, projectID int64) error {
	return g.doJSON(ctx, http.MethodDelete, "/shots", projectQuery(projectID), nil, nil)
}

// ReplaceAllShots 批量替换所有分镜
// script/characters 随同一次写入发送，避免替换分镜时丢掉无关的项目状态
func (g *HTTPGateway) ReplaceAllShots(ctx context.Context, projectID int64, shots []models.ShotDraft, script *string, characters models.CharacterMap) ([]models.Shot, error) {
	body := map[string]interface{}{
		"shots": shots,
	}
	if script != nil {
		body["script"] = *script
	}
	if characters != nil {
		body["characters"] = characters
	}

	var raw json.RawMessage
	if err := g.doJSON(ctx, http.MethodPut, "/shots", projectQuery(projectID), body, &raw); err != nil {
		return nil, err
	}
	return decodeShotList(raw)
}

// SaveScript 保存脚本
func (g *HTTPGateway) SaveScript(ctx context.Context, projectID int64, script string) error {
	body := map[string]interface{}{
		"script":     script,
		"project_id": projectID,
	}
	return g.doJSON(ctx, http.MethodPut, "/shots/script", projectQuery(projectID), body, nil)
}

// SaveCharacters 整体替换角色表
func (g *HTTPGateway) SaveCharacters(ctx context.Context, projectID int64, characters models.CharacterMap) (models.CharacterMap, error) {
	body := map[string]interface{}{
		"characters": characters,
		"project_id": projectID,
	}

	var resp struct {
		Characters models.CharacterMap `json:"characters"`
	}
	if err := g.doJSON(ctx, http.MethodPut, "/shots/characters", projectQuery(projectID), body, &resp); err != nil {
		return nil, err
	}
	if resp.Characters == nil {
		return characters, nil
	}
	return resp.Characters, nil
}
