// models/events.go
package models

// 房间推送给客户端的事件类型，序列化在 JSON 的 type 字段里
const (
	EventLobbyState  = "lobby_state"
	EventGameState   = "game_state"
	EventGameStart   = "game_start"
	EventReadyState  = "player_ready_state"
	EventChatMessage = "chat_message"
)

// PlayerLobbyInfo 大厅视图中的玩家字段
type PlayerLobbyInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Ready       bool   `json:"ready"`
}

// PlayerGameInfo 对局视图中的玩家字段
type PlayerGameInfo struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// MapData 随 game_start 下发的地图元数据
type MapData struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	GroundY float64 `json:"ground_y"`
}

// SpawnPoint 开局时分配给某个玩家的出生点
type SpawnPoint struct {
	PlayerID string  `json:"player_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// LobbyStateEvent 按需生成的大厅快照
type LobbyStateEvent struct {
	Type       string            `json:"type"`
	RoomID     string            `json:"room_id"`
	State      string            `json:"state"`
	MaxPlayers int               `json:"max_players"`
	Players    []PlayerLobbyInfo `json:"players"`
}

// GameStateEvent 每 Tick 广播的对局快照。Enemies/Items 目前恒为空，
// 占位以保持客户端协议稳定。
type GameStateEvent struct {
	Type     string           `json:"type"`
	Tick     int64            `json:"tick"`
	TimeLeft float64          `json:"time_left"`
	Round    int              `json:"round"`
	Players  []PlayerGameInfo `json:"players"`
	Enemies  []PlayerGameInfo `json:"enemies"`
	Items    []ItemInfo       `json:"items"`
}

// ItemInfo 地图道具占位
type ItemInfo struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// GameStartEvent 进入对局时广播一次
type GameStartEvent struct {
	Type        string       `json:"type"`
	Round       int          `json:"round"`
	MapData     MapData      `json:"map_data"`
	SpawnPoints []SpawnPoint `json:"spawn_points"`
}

// ReadyStateEvent 玩家准备状态变化
type ReadyStateEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

// ChatEvent 聊天消息，内容原样转发
type ChatEvent struct {
	Type       string `json:"type"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
}
