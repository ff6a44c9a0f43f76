package domain

type NotificationSettings struct {
	// Webhook 設定
	WebhookEnabled  bool   `bson:"webhook_enabled" json:"webhook_enabled"`
	WebhookURL      string `bson:"webhook_url" json:"webhook_url"`
	WebhookUser     string `bson:"webhook_user" json:"webhook_user"`
	WebhookPassword string `bson:"webhook_password" json:"webhook_password"`

	// Telegram 設定
	TelegramEnabled  bool   `bson:"telegram_enabled" json:"telegram_enabled"`
	TelegramBotToken string `bson:"telegram_bot_token" json:"telegram_bot_token"`
	TelegramChatID   string `bson:"telegram_chat_id" json:"telegram_chat_id"`

	// 分析批次狀態變化通知，模板空字串則使用系統預設
	NotifyOnCompleted         bool   `bson:"notify_on_completed" json:"notify_on_completed"`
	NotifyOnCompletedTemplate string `bson:"notify_on_completed_tpl" json:"notify_on_completed_tpl"`
	NotifyOnFailed            bool   `bson:"notify_on_failed" json:"notify_on_failed"`
	NotifyOnFailedTemplate    string `bson:"notify_on_failed_tpl" json:"notify_on_failed_tpl"`

	// 人工審核批次操作通知
	NotifyOnReview         bool   `bson:"notify_on_review" json:"notify_on_review"`
	NotifyOnReviewTemplate string `bson:"notify_on_review_tpl" json:"notify_on_review_tpl"`
}

// HasChannel 至少開啟一個通道
func (s NotificationSettings) HasChannel() bool {
	return (s.TelegramEnabled && s.TelegramBotToken != "" && s.TelegramChatID != "") ||
		(s.WebhookEnabled && s.WebhookURL != "")
}
