package notification

import (
	"github.com/fisker/bcm-backend/pkg/config"
	"github.com/fisker/bcm-backend/pkg/logger"
)

// InitFromConfig 根据配置创建通知管理器，未配置任何渠道时通知只记录日志
func InitFromConfig(cfg *config.NotificationConfig) *NotificationManager {
	nm := NewNotificationManager()

	if cfg.FeishuWebhook != "" {
		nm.AddNotifier(NewFeishuNotifier(cfg.FeishuWebhook, cfg.FeishuSecret))
		logger.Infof("[Notification] Feishu notifier enabled (webhook: %s)", truncateURL(cfg.FeishuWebhook))
	}
	if cfg.DingTalkWebhook != "" {
		nm.AddNotifier(NewDingTalkNotifier(cfg.DingTalkWebhook, cfg.DingTalkSecret))
		logger.Infof("[Notification] DingTalk notifier enabled (webhook: %s)", truncateURL(cfg.DingTalkWebhook))
	}
	if cfg.WeChatWebhook != "" {
		nm.AddNotifier(NewWeChatNotifier(cfg.WeChatWebhook))
		logger.Infof("[Notification] WeChat notifier enabled (webhook: %s)", truncateURL(cfg.WeChatWebhook))
	}

	if n := nm.GetNotifiersCount(); n > 0 {
		logger.Infof("[Notification] Notification system enabled with %d notifier(s)", n)
	} else {
		logger.Infof("[Notification] No channels configured, approval notifications will only be logged")
	}
	return nm
}

func truncateURL(u string) string {
	if len(u) > 50 {
		return u[:50] + "..."
	}
	return u
}
