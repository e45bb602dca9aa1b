package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := flag.String("base", "http://localhost:5000/api", "API base URL")
	flag.Parse()

	fmt.Println("=== Todo List API smoke test ===")
	client := &http.Client{Timeout: 5 * time.Second}

	// 1. 健康检查
	fmt.Println("\n1. GET /health")
	if _, err := testEndpoint(client, *baseURL, "GET", "/health", nil, http.StatusOK); err != nil {
		fail(err)
	}

	// 2. 获取列表
	fmt.Println("\n2. GET /todos")
	if _, err := testEndpoint(client, *baseURL, "GET", "/todos", nil, http.StatusOK); err != nil {
		fail(err)
	}

	// 3. 创建
	fmt.Println("\n3. POST /todos")
	body, err := testEndpoint(client, *baseURL, "POST", "/todos", map[string]any{"title": "buy milk"}, http.StatusCreated)
	if err != nil {
		fail(err)
	}
	var created struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		fail(fmt.Errorf("failed to decode created todo: %w", err))
	}

	// 4. 缺少标题
	fmt.Println("\n4. POST /todos without title")
	if _, err := testEndpoint(client, *baseURL, "POST", "/todos", map[string]any{}, http.StatusBadRequest); err != nil {
		fail(err)
	}

	// 5. 标记完成
	fmt.Println("\n5. PUT /todos/" + created.ID)
	if _, err := testEndpoint(client, *baseURL, "PUT", "/todos/"+created.ID, map[string]any{"completed": true}, http.StatusOK); err != nil {
		fail(err)
	}

	// 6. 删除
	fmt.Println("\n6. DELETE /todos/" + created.ID)
	if _, err := testEndpoint(client, *baseURL, "DELETE", "/todos/"+created.ID, nil, http.StatusOK); err != nil {
		fail(err)
	}

	// 7. 重复删除
	fmt.Println("\n7. DELETE /todos/" + created.ID + " again")
	if _, err := testEndpoint(client, *baseURL, "DELETE", "/todos/"+created.ID, nil, http.StatusNotFound); err != nil {
		fail(err)
	}

	fmt.Println("\n=== done ===")
}

func fail(err error) {
	fmt.Printf("FAILED: %v\n", err)
	os.Exit(1)
}

func testEndpoint(client *http.Client, baseURL, method, endpoint string, data any, wantStatus int) ([]byte, error) {
	var reader io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	fmt.Printf("%s %s - Status: %d\n", method, endpoint, resp.StatusCode)
	if len(body) < 500 {
		fmt.Printf("Response: %s", string(body))
	} else {
		fmt.Printf("Response: [Response too large: %d bytes]\n", len(body))
	}

	if resp.StatusCode != wantStatus {
		return body, fmt.Errorf("%s %s: want status %d, got %d", method, endpoint, wantStatus, resp.StatusCode)
	}
	return body, nil
}
