// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/arena/logger"
	"github.com/wfunc/arena/network"
	"github.com/wfunc/arena/session"
)

var (
	ErrPlayerOffline = errors.New("player has no active session")
)

// SessionBroadcaster 通过会话管理器把房间事件投递到玩家的活跃连接，
// 实现 room.Broadcaster。消息只进入会话的出站队列，不等待网络写入，
// 房间的 Tick 循环不会被慢客户端拖住。投递失败只记录日志，不回传给房间。
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *SessionBroadcaster) SendToPlayer(playerID string, payload []byte) error {
	sess, ok := b.sessionManager.GetByPlayerID(playerID)
	if !ok {
		// 玩家可能刚掉线，事件直接丢弃
		return ErrPlayerOffline
	}

	if err := sess.Send(network.MsgTypeRoomEvent, payload); err != nil {
		logger.Log.Debugf("failed to deliver event to player %s: %v", playerID, err)
		return err
	}
	return nil
}
