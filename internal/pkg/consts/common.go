package consts

// 行存储中的逻辑表
const (
	TableMessages      = "messages"
	TableMessageLookup = "message_lookup"
	TableInvites       = "invites"
	TableServerConfig  = "server_config"
	TableServerRoles   = "server_roles"
	TableBans          = "bans"
	TableReports       = "reports"
	TableReportLookup  = "report_lookup"
)

// AllTables 启动时需要建立索引的全部表
var AllTables = []string{
	TableMessages, TableMessageLookup, TableInvites, TableServerConfig,
	TableServerRoles, TableBans, TableReports, TableReportLookup,
}

// 固定分区键
const (
	ServerConfigPartition = "config"
	BansPartition         = "bans"
	ReportsPartition      = "reports"
)

const (
	InviteCodeLength   = 8
	DefaultPageSize    = 50
	MaxPageSize        = 200
	DefaultReportLimit = 100
)
