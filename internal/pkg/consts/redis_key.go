package consts

// Redis 发布订阅频道
const (
	ChannelConversation = "conv:"
	ChannelServer       = "server"
	ChannelModeration   = "moderation"
)

// 分布式锁
const (
	ModerationDigestLockKey = "lock:moderation:digest"
)
