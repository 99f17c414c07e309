package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fisker/bcm-backend/internal/workflow"
	"github.com/fisker/bcm-backend/pkg/logger"
)

// NotificationManager 向所有已配置渠道异步推送审批流转通知
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers []Notifier
	wg        sync.WaitGroup
}

func NewNotificationManager() *NotificationManager {
	return &NotificationManager{notifiers: make([]Notifier, 0)}
}

// AddNotifier 添加通知器
func (m *NotificationManager) AddNotifier(notifier Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, notifier)
}

// GetNotifiersCount 获取通知器数量
func (m *NotificationManager) GetNotifiersCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifiers)
}

// NotifyApprovalEvent 实现 workflow.Notifier。发送不阻塞调用方，失败只记日志。
func (m *NotificationManager) NotifyApprovalEvent(_ context.Context, event workflow.Event) {
	title, content := FormatEvent(event)
	logger.Debugf("[Notification] %s: %s", title, strings.ReplaceAll(content, "\n", " | "))
	m.SendAlert(title, content)
}

// SendAlert 发送通用通知
func (m *NotificationManager) SendAlert(title, content string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, notifier := range m.notifiers {
		m.wg.Add(1)
		go func(n Notifier) {
			defer m.wg.Done()
			// 与请求上下文解耦，HTTP 请求结束后仍需发送完成
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := n.SendAlert(ctx, title, content); err != nil {
				logger.Warnf("[Notification] Failed to send %s notification: %v", n.Name(), err)
			}
		}(notifier)
	}
}

// Wait 等待所有已发出的通知完成（关闭服务时使用）
func (m *NotificationManager) Wait() {
	m.wg.Wait()
}

// FormatEvent 生成通知标题与 Markdown 内容
func FormatEvent(event workflow.Event) (string, string) {
	req := event.Request

	var title string
	switch event.Kind {
	case workflow.EventCreated:
		title = fmt.Sprintf("新的审批请求待 %s 处理", req.CurrentApproverRole)
	case workflow.EventAdvanced:
		title = fmt.Sprintf("审批请求已流转至 %s", req.CurrentApproverRole)
	case workflow.EventApproved:
		title = "审批请求已通过"
	case workflow.EventRejected:
		title = "审批请求已驳回"
	case workflow.EventEscalated:
		title = fmt.Sprintf("审批请求已升级至 %s", req.CurrentApproverRole)
	default:
		title = "审批请求状态变更"
	}

	lines := []string{
		fmt.Sprintf("**标题**: %s", req.Title),
		fmt.Sprintf("**类型**: %s", req.Type),
		fmt.Sprintf("**状态**: %s", req.Status),
		fmt.Sprintf("**当前审批角色**: %s", req.CurrentApproverRole),
		fmt.Sprintf("**请求ID**: %s", req.ID),
	}
	if event.Comments != "" {
		lines = append(lines, fmt.Sprintf("**意见**: %s", event.Comments))
	}
	return title, strings.Join(lines, "\n")
}
