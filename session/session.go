// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/arena/logger"
	"github.com/wfunc/arena/network"
)

// 出站队列容量。长期不消费的客户端在队列塞满时被断开。
const sendQueueSize = 64

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSendQueueFull = errors.New("session send queue full")
)

type outPacket struct {
	msgID uint16
	data  []byte
}

// Session 绑定一条连接与它声明的玩家身份。出站消息先进有界队列，
// 由独立的写协程串行落到连接上，慢客户端不会拖住调用方。
type Session struct {
	ID        string
	Conn      network.Connection
	CreatedAt time.Time

	mutex      sync.RWMutex
	playerID   string
	roomID     string
	lastActive time.Time

	sendChan  chan outPacket
	closeChan chan struct{}
	closeOnce sync.Once
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		sendChan:   make(chan outPacket, sendQueueSize),
		closeChan:  make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Bind 记录这条连接代表的玩家与所在房间
func (s *Session) Bind(playerID, roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.playerID = playerID
	s.roomID = roomID
}

// Unbind 清除房间归属（玩家离开或房间被回收）
func (s *Session) Unbind() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = ""
}

// Binding 返回当前绑定的玩家与房间
func (s *Session) Binding() (playerID, roomID string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.playerID, s.roomID
}

// Touch 刷新活跃时间。只在收到入站数据时调用，出站推送不算活跃。
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

// LastActive 返回最近一次入站活跃时间
func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// Send 把消息放入出站队列后立即返回，不等待网络写入。
// 队列满说明客户端长期不读，直接断开这条连接。
func (s *Session) Send(msgID uint16, data []byte) error {
	select {
	case <-s.closeChan:
		return ErrSessionClosed
	default:
	}

	select {
	case s.sendChan <- outPacket{msgID: msgID, data: data}:
		return nil
	default:
		logger.Log.Warnf("session %s send queue full, closing", s.ID)
		s.Close()
		return ErrSendQueueFull
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case pkt := <-s.sendChan:
			if err := s.Conn.Send(pkt.msgID, pkt.data); err != nil {
				logger.Log.Debugf("session %s write failed: %v", s.ID, err)
				s.Close()
				return
			}
		case <-s.closeChan:
			return
		}
	}
}

func (s *Session) GetID() string {
	return s.ID
}

// Close 停止写协程并关闭底层连接，可重复调用
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeChan)
		err = s.Conn.Close()
	})
	return err
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByPlayerID 返回某个玩家当前的活跃连接。一个玩家同一时刻只应有
// 一条绑定连接；出现多条时返回最近活跃的那条。
func (m *Manager) GetByPlayerID(playerID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var best *Session
	for _, session := range m.sessions {
		pid, _ := session.Binding()
		if pid != playerID {
			continue
		}
		if best == nil || session.LastActive().After(best.LastActive()) {
			best = session
		}
	}
	return best, best != nil
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
