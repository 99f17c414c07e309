package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Notifier 通知渠道
type Notifier interface {
	Name() string
	SendAlert(ctx context.Context, title, content string) error
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// FeishuNotifier 飞书通知
type FeishuNotifier struct {
	WebhookURL string
	Secret     string
}

// DingTalkNotifier 钉钉通知
type DingTalkNotifier struct {
	WebhookURL string
	Secret     string
}

// WeChatNotifier 企业微信通知
type WeChatNotifier struct {
	WebhookURL string
}

// NewFeishuNotifier 创建飞书通知器
func NewFeishuNotifier(webhookURL, secret string) *FeishuNotifier {
	return &FeishuNotifier{
		WebhookURL: webhookURL,
		Secret:     secret,
	}
}

// NewDingTalkNotifier 创建钉钉通知器
func NewDingTalkNotifier(webhookURL, secret string) *DingTalkNotifier {
	return &DingTalkNotifier{
		WebhookURL: webhookURL,
		Secret:     secret,
	}
}

// NewWeChatNotifier 创建企业微信通知器
func NewWeChatNotifier(webhookURL string) *WeChatNotifier {
	return &WeChatNotifier{
		WebhookURL: webhookURL,
	}
}

func (n *FeishuNotifier) Name() string   { return "feishu" }
func (n *DingTalkNotifier) Name() string { return "dingtalk" }
func (n *WeChatNotifier) Name() string   { return "wechat" }

// SendAlert 发送飞书卡片消息
func (n *FeishuNotifier) SendAlert(ctx context.Context, title, content string) error {
	timestamp := time.Now().Unix()

	message := map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": "blue",
			},
			"elements": []map[string]interface{}{
				{
					"tag": "div",
					"text": map[string]interface{}{
						"content": content,
						"tag":     "lark_md",
					},
				},
				{
					"tag": "hr",
				},
				{
					"tag": "note",
					"elements": []map[string]interface{}{
						{
							"tag":     "plain_text",
							"content": fmt.Sprintf("通知时间: %s", time.Now().Format("2006-01-02 15:04:05")),
						},
					},
				},
			},
		},
	}
	if n.Secret != "" {
		message["timestamp"] = fmt.Sprintf("%d", timestamp)
		message["sign"] = n.genSign(timestamp)
	}

	respBody, err := postJSON(ctx, n.WebhookURL, message)
	if err != nil {
		return fmt.Errorf("feishu: %w", err)
	}

	// 飞书即使返回 200，也可能在响应体中包含错误码
	if len(respBody) > 0 {
		var feishuResp struct {
			Code float64 `json:"code"`
			Msg  string  `json:"msg"`
		}
		if err := json.Unmarshal(respBody, &feishuResp); err == nil && feishuResp.Code != 0 {
			return fmt.Errorf("feishu returned error code: %.0f, msg: %s", feishuResp.Code, feishuResp.Msg)
		}
	}
	return nil
}

// genSign 生成飞书签名
func (n *FeishuNotifier) genSign(timestamp int64) string {
	stringToSign := fmt.Sprintf("%v", timestamp) + "\n" + n.Secret
	var data []byte
	h := hmac.New(sha256.New, []byte(stringToSign))
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// SendAlert 发送钉钉 Markdown 消息
func (n *DingTalkNotifier) SendAlert(ctx context.Context, title, content string) error {
	message := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]interface{}{
			"title": title,
			"text":  fmt.Sprintf("## %s\n\n%s", title, content),
		},
	}

	target := n.WebhookURL
	if n.Secret != "" {
		timestamp := time.Now().UnixNano() / 1e6
		target = fmt.Sprintf("%s&timestamp=%d&sign=%s", target, timestamp, url.QueryEscape(n.genSign(timestamp)))
	}

	if _, err := postJSON(ctx, target, message); err != nil {
		return fmt.Errorf("dingtalk: %w", err)
	}
	return nil
}

// genSign 生成钉钉签名
func (n *DingTalkNotifier) genSign(timestamp int64) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, n.Secret)
	h := hmac.New(sha256.New, []byte(n.Secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// SendAlert 发送企业微信 Markdown 消息
func (n *WeChatNotifier) SendAlert(ctx context.Context, title, content string) error {
	message := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]interface{}{
			"content": fmt.Sprintf("**%s**\n%s", title, content),
		},
	}

	if _, err := postJSON(ctx, n.WebhookURL, message); err != nil {
		return fmt.Errorf("wechat: %w", err)
	}
	return nil
}

// postJSON 发送 JSON 请求，非 200 返回错误
func postJSON(ctx context.Context, target string, message interface{}) ([]byte, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal message failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errorMsg := fmt.Sprintf("non-200 status: %d", resp.StatusCode)
		if len(respBody) > 0 {
			errorMsg += fmt.Sprintf(", response: %s", string(respBody))
		}
		return nil, fmt.Errorf("%s", errorMsg)
	}
	return respBody, nil
}
