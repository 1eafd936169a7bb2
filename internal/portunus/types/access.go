package types

type AccessAction string

const (
	ActionEntry AccessAction = "entry"
	ActionExit  AccessAction = "exit"
)

type AccessResult string

const (
	ResultGranted AccessResult = "granted"
	ResultDenied  AccessResult = "denied"
)

// AccessLogEntry is immutable once recorded.
type AccessLogEntry struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId,omitempty"`
	UserName  string       `json:"userName,omitempty"`
	CardUID   string       `json:"cardUid"`
	DoorID    string       `json:"doorId,omitempty"`
	DeviceID  string       `json:"deviceId,omitempty"`
	Action    AccessAction `json:"action"`
	Result    AccessResult `json:"result"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp Timestamp    `json:"timestamp"`
}

type AccessStats struct {
	Period      string `json:"period"`
	Granted     int    `json:"granted"`
	Denied      int    `json:"denied"`
	TotalAccess int    `json:"totalAccess"`
}

type AccessLogQuery struct {
	Page  int
	Limit int
}

// AccessRequest is sent by a door module when a card is presented.
type AccessRequest struct {
	DeviceID    string       `json:"device_id"`
	CardUID     string       `json:"card_uid"`
	Action      AccessAction `json:"action,omitempty"`
	RequestedAt string       `json:"requested_at,omitempty"` // optional device timestamp
}

type AccessResponse struct {
	OK         bool   `json:"ok"`
	Known      bool   `json:"known"`
	Granted    bool   `json:"granted"`
	Reason     string `json:"reason,omitempty"`
	DeviceID   string `json:"device_id"`
	ServerTime string `json:"server_time"`
}
