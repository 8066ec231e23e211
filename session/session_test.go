package session

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/arena/network"
)

// MockConnection is a test double for network.Connection that records
// everything sent through it. Safe for use from the session write goroutine.
type MockConnection struct {
	mutex  sync.Mutex
	sent   []network.Packet
	closed bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, network.Packet{MsgID: msgID, Data: data, Length: uint16(len(data))})
	return nil
}

func (m *MockConnection) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr                { return nil }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) {
	return nil, nil
}

func (m *MockConnection) packets() []network.Packet {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]network.Packet(nil), m.sent...)
}

func (m *MockConnection) isClosed() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.closed
}

// blockingConnection stalls every write until released, simulating a peer
// that stops reading.
type blockingConnection struct {
	releaseChan chan struct{}
}

func newBlockingConnection() *blockingConnection {
	return &blockingConnection{releaseChan: make(chan struct{})}
}

func (c *blockingConnection) release() { close(c.releaseChan) }

func (c *blockingConnection) Send(msgID uint16, data []byte) error {
	<-c.releaseChan
	return nil
}

func (c *blockingConnection) Close() error                        { return nil }
func (c *blockingConnection) RemoteAddr() net.Addr                { return nil }
func (c *blockingConnection) SetHeartbeat(interval time.Duration) {}
func (c *blockingConnection) ReadPacket() (*network.Packet, error) {
	return nil, nil
}

// waitForPackets polls until the connection has seen n packets.
func waitForPackets(t *testing.T, conn *MockConnection, n int) []network.Packet {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if packets := conn.packets(); len(packets) >= n {
			return packets
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d packets, got %d", n, len(conn.packets()))
	return nil
}

func TestSession_Bind(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})
	defer sess.Close()

	sess.Bind("p1", "room1")
	playerID, roomID := sess.Binding()
	if playerID != "p1" || roomID != "room1" {
		t.Errorf("binding = (%s, %s)", playerID, roomID)
	}

	sess.Unbind()
	playerID, roomID = sess.Binding()
	if playerID != "p1" || roomID != "" {
		t.Errorf("unbind should only clear the room, got (%s, %s)", playerID, roomID)
	}
}

func TestSession_Send(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s1", conn)
	defer sess.Close()

	if err := sess.Send(301, []byte("hello")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	packets := waitForPackets(t, conn, 1)
	if packets[0].MsgID != 301 || string(packets[0].Data) != "hello" {
		t.Errorf("unexpected packet %+v", packets[0])
	}
}

func TestSession_Send_DoesNotTouchActivity(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s1", conn)
	defer sess.Close()

	before := sess.LastActive()
	time.Sleep(5 * time.Millisecond)

	sess.Send(301, []byte("push"))
	waitForPackets(t, conn, 1)

	if !sess.LastActive().Equal(before) {
		t.Error("outbound pushes must not refresh the activity timestamp")
	}

	sess.Touch()
	if !sess.LastActive().After(before) {
		t.Error("inbound traffic should refresh the activity timestamp")
	}
}

func TestSession_SendDoesNotBlockOnStalledConn(t *testing.T) {
	conn := newBlockingConnection()
	defer conn.release()

	sess := NewSession("s1", conn)
	defer sess.Close()

	done := make(chan error, 1)
	go func() {
		var last error
		for i := 0; i < sendQueueSize+5; i++ {
			if err := sess.Send(301, []byte("x")); err != nil {
				last = err
				break
			}
		}
		done <- last
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSendQueueFull) && !errors.Is(err, ErrSessionClosed) {
			t.Errorf("expected a queue-full error once the backlog fills, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Send blocked on a connection whose peer stopped reading")
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})
	sess.Close()

	if err := sess.Send(301, []byte("late")); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_Close(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s1", conn)

	sess.Close()
	sess.Close() // idempotent
	if !conn.isClosed() {
		t.Error("close should propagate to the connection")
	}
}

func TestManager_AddRemoveGet(t *testing.T) {
	manager := NewManager()

	sess := NewSession("s1", &MockConnection{})
	defer sess.Close()
	manager.Add(sess)

	if manager.Count() != 1 {
		t.Errorf("expected 1 session, got %d", manager.Count())
	}

	got, exists := manager.Get("s1")
	if !exists || got != sess {
		t.Error("Get should return the added session")
	}

	manager.Remove("s1")
	if _, exists := manager.Get("s1"); exists {
		t.Error("removed session should not be found")
	}
}

func TestManager_GetByPlayerID(t *testing.T) {
	manager := NewManager()

	if _, exists := manager.GetByPlayerID("p1"); exists {
		t.Fatal("empty manager should find nothing")
	}

	sess := NewSession("s1", &MockConnection{})
	defer sess.Close()
	sess.Bind("p1", "room1")
	manager.Add(sess)

	unbound := NewSession("s2", &MockConnection{})
	defer unbound.Close()
	manager.Add(unbound)

	got, exists := manager.GetByPlayerID("p1")
	if !exists || got != sess {
		t.Error("lookup by player id should return the bound session")
	}

	if _, exists := manager.GetByPlayerID("p2"); exists {
		t.Error("lookup for an unknown player should fail")
	}
}

func TestManager_GetByPlayerID_PrefersRecent(t *testing.T) {
	manager := NewManager()

	stale := NewSession("s1", &MockConnection{})
	defer stale.Close()
	stale.Bind("p1", "room1")
	stale.mutex.Lock()
	stale.lastActive = time.Now().Add(-time.Minute)
	stale.mutex.Unlock()
	manager.Add(stale)

	fresh := NewSession("s2", &MockConnection{})
	defer fresh.Close()
	fresh.Bind("p1", "room1")
	manager.Add(fresh)

	got, exists := manager.GetByPlayerID("p1")
	if !exists || got != fresh {
		t.Error("lookup should prefer the most recently active session")
	}
}

// Mirrors the production wiring: the read loop refreshes activity while a
// room tick goroutine resolves the session and pushes events through it.
func TestManager_ConcurrentTouchAndDelivery(t *testing.T) {
	manager := NewManager()

	sess := NewSession("s1", &MockConnection{})
	defer sess.Close()
	sess.Bind("p1", "room1")
	manager.Add(sess)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			sess.Touch()
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if s, ok := manager.GetByPlayerID("p1"); ok {
				s.Send(301, []byte("tick"))
			}
		}
	}()

	wg.Wait()
}
