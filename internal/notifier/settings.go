package notifier

// NotificationSettings はユーザーごとの通知設定。
// users/{uid}/settings/notifications に保存される。
type NotificationSettings struct {
	// SystemNotifications はシステム通知の受信可否。
	SystemNotifications bool `json:"systemNotifications"`
	// Offers はオファー通知の受信可否。
	Offers bool `json:"offers"`
	// Orders は注文通知の受信可否。
	Orders bool `json:"orders"`
}

// DefaultSettings は設定ドキュメントが存在しないユーザーに適用する設定を返す。
// すべての通知が有効になる。
func DefaultSettings() NotificationSettings {
	return NotificationSettings{
		SystemNotifications: true,
		Offers:              true,
		Orders:              true,
	}
}
