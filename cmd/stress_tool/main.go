package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// 投票账本压测：N 个用户并发给同一帖子点赞，然后重复点赞，最后点踩取消，
// 结束时帖子的 likes 必须回到 0。
// 服务端按 IP 限流，压测前调大 server.rate_limit / server.rate_burst。
var (
	baseURL    = flag.String("base", "http://localhost:8080", "server base URL")
	totalUsers = flag.Int("users", 200, "concurrent voters")
	httpClient *http.Client
)

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func main() {
	flag.Parse()
	run := time.Now().UnixNano()

	// 1. 准备用户
	fmt.Printf("注册并登录 %d 个用户...\n", *totalUsers)
	tokens := make([]string, *totalUsers)
	for i := range tokens {
		name := fmt.Sprintf("stress_%d_%d", run, i)
		if _, err := call(http.MethodPost, "/auth/register", "", map[string]string{
			"username": name, "password": "stress-pass", "email": name + "@example.com",
		}); err != nil {
			fatal("register", err)
		}
		data, err := call(http.MethodPost, "/auth/login", "", map[string]string{"username": name, "password": "stress-pass"})
		if err != nil {
			fatal("login", err)
		}
		var login struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(data, &login)
		tokens[i] = login.Token
	}

	// 2. 创建目标帖子
	data, err := call(http.MethodPost, "/posts", tokens[0], map[string]string{
		"title": "vote stress", "category": "discussion", "content": "stress target",
	})
	if err != nil {
		fatal("create post", err)
	}
	var created struct {
		Post struct {
			ID uint `json:"id"`
		} `json:"post"`
	}
	_ = json.Unmarshal(data, &created)
	votePath := func(action string) string {
		return fmt.Sprintf("/vote/post/%d/%s", created.Post.ID, action)
	}

	// 3. 三轮并发投票
	ok1, _ := round("并发点赞", tokens, votePath("like"))
	_, rejected := round("重复点赞", tokens, votePath("like"))
	ok3, _ := round("并发点踩(取消)", tokens, votePath("dislike"))

	detail, err := call(http.MethodGet, fmt.Sprintf("/posts/%d", created.Post.ID), "", nil)
	if err != nil {
		fatal("get post", err)
	}
	var final struct {
		Post struct {
			Likes int `json:"likes"`
		} `json:"post"`
	}
	_ = json.Unmarshal(detail, &final)

	fmt.Println("--------------------------------------------------")
	fmt.Printf("点赞成功: %d (预期: %d)\n", ok1, *totalUsers)
	fmt.Printf("重复点赞被拒: %d (预期: %d)\n", rejected, *totalUsers)
	fmt.Printf("取消成功: %d (预期: %d)\n", ok3, *totalUsers)
	fmt.Printf("最终 likes: %d (预期: 0)\n", final.Post.Likes)
	fmt.Println("--------------------------------------------------")
	if ok1 != *totalUsers || rejected != *totalUsers || ok3 != *totalUsers || final.Post.Likes != 0 {
		os.Exit(1)
	}
}

// round 并发发送同一投票请求，返回成功数与失败数
func round(name string, tokens []string, path string) (int, int) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		failed  int
	)
	start := time.Now()
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			_, err := call(http.MethodPost, path, token, nil)
			mu.Lock()
			if err == nil {
				success++
			} else {
				failed++
			}
			mu.Unlock()
		}(token)
	}
	wg.Wait()
	duration := time.Since(start)
	fmt.Printf("[%s] 耗时 %v, QPS %.2f, 成功 %d, 失败 %d\n",
		name, duration, float64(len(tokens))/duration.Seconds(), success, failed)
	return success, failed
}

// call 发送请求，HTTP 非 2xx 或业务码非 0 均视为失败
func call(method, path, token string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, *baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
	}
	if resp.StatusCode/100 != 2 || env.Code != 0 {
		return nil, fmt.Errorf("status %d code %d: %s", resp.StatusCode, env.Code, env.Message)
	}
	return env.Data, nil
}

func fatal(step string, err error) {
	fmt.Printf("%s 失败: %v\n", step, err)
	os.Exit(1)
}
