// room/interfaces.go
package room

// Broadcaster 是房间的出站投递能力：把已序列化的负载发给某个玩家。
// 投递被视为 fire-and-forget，房间不关心返回的错误。
type Broadcaster interface {
	SendToPlayer(playerID string, payload []byte) error
}

// NopBroadcaster 在没有配置投递能力时使用，所有发送都是空操作
type NopBroadcaster struct{}

func (NopBroadcaster) SendToPlayer(playerID string, payload []byte) error { return nil }
