package model

// EventKind classifies a contract log by its signature topic.
type EventKind string

const (
	EventFraudFound       EventKind = "FraudFound"
	EventRoleAdminChanged EventKind = "RoleAdminChanged"
	EventRoleGranted      EventKind = "RoleGranted"
	EventRoleRevoked      EventKind = "RoleRevoked"
	EventUnknown          EventKind = "Unknown"
)

// DecodedEvent is a typed view of a raw contract log. Raw topics and data are
// always preserved so unknown or malformed logs stay renderable.
type DecodedEvent struct {
	Kind        EventKind   `json:"kind"`
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Topics      []string    `json:"topics"`
	Data        string      `json:"data"`
	Fields      interface{} `json:"fields,omitempty"`
}

// FraudFoundFields is the decoded FraudFound payload.
type FraudFoundFields struct {
	ConfigName string `json:"config_name"`
	QueryHash  string `json:"query_hash"`
}

// RoleAdminChangedFields is the decoded RoleAdminChanged payload.
type RoleAdminChangedFields struct {
	Role              string `json:"role"`
	PreviousAdminRole string `json:"previous_admin_role"`
	NewAdminRole      string `json:"new_admin_role"`
}

// RoleMemberFields is the decoded payload shared by RoleGranted and
// RoleRevoked.
type RoleMemberFields struct {
	Role    string `json:"role"`
	Account string `json:"account"`
	Sender  string `json:"sender"`
}
