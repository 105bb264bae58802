// internal/gateway/http_gateway_test.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/videoxlab/videox/internal/models"
)

// TestFetchProjectState 拉取项目状态走 GET /shots?project_id=N
func TestFetchProjectState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/shots" {
			t.Errorf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("project_id") != "7" {
			t.Errorf("project_id 查询参数错误: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"shots": []map[string]interface{}{
				{"shot_id": 1, "order": 1, "content": "第一镜"},
			},
			"script":     "剧本正文",
			"characters": map[string]string{"A": "描述"},
		})
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL)
	state, err := gw.FetchProjectState(context.Background(), 7)
	if err != nil {
		t.Fatalf("拉取失败: %v", err)
	}
	if len(state.Shots) != 1 || state.Shots[0].Content != "第一镜" {
		t.Fatalf("分镜解析错误: %+v", state.Shots)
	}
	if state.Script != "剧本正文" || state.Characters["A"] != "描述" {
		t.Fatalf("脚本或角色表解析错误: %+v", state)
	}
}

// TestUpdateShotSendsMergedRecord 单镜更新发送合并后的完整记录
func TestUpdateShotSendsMergedRecord(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/shots/42" {
			t.Errorf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL)
	err := gw.UpdateShot(context.Background(), 7, models.Shot{
		ShotID:     42,
		Content:    "正文",
		T2IPrompt:  "prompt",
		Characters: []string{"A"},
	})
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if got["content"] != "正文" || got["t2i_prompt"] != "prompt" {
		t.Fatalf("请求体缺少字段: %+v", got)
	}
}

// TestDecodeShotListBothShapes 裸数组与 {shots: []} 两种响应形式都接受
func TestDecodeShotListBothShapes(t *testing.T) {
	for _, raw := range []string{
		`[{"shot_id": 1, "order": 1, "content": "一"}]`,
		`{"shots": [{"shot_id": 1, "order": 1, "content": "一"}]}`,
	} {
		shots, err := decodeShotList(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("解析 %s 失败: %v", raw, err)
		}
		if len(shots) != 1 || shots[0].Content != "一" {
			t.Fatalf("解析 %s 结果错误: %+v", raw, shots)
		}
	}
}

// TestInsertShotRequest 插入请求携带参考分镜与方位
func TestInsertShotRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shots/insert" {
			t.Errorf("意外的路径: %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["position"] != PositionAbove || body["reference_shot_id"] != float64(3) {
			t.Errorf("请求体错误: %+v", body)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"shot_id": 9, "order": 1, "content": ""},
			{"shot_id": 3, "order": 2, "content": "原分镜"},
		})
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL)
	shots, err := gw.InsertShot(context.Background(), 7, 3, PositionAbove, "")
	if err != nil {
		t.Fatalf("插入失败: %v", err)
	}
	if len(shots) != 2 || shots[0].ShotID != 9 {
		t.Fatalf("插入结果错误: %+v", shots)
	}
}

// TestGatewayErrorStatus 非 2xx 响应返回带状态码的错误
func TestGatewayErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "project not found", http.StatusNotFound)
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL)
	_, err := gw.FetchProjectState(context.Background(), 99)
	if err == nil {
		t.Fatal("期望错误")
	}
}
