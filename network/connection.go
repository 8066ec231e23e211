// network/connection.go
package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// 封包头: 2字节消息ID + 2字节负载长度
	headerSize = 4
	writeWait  = 10 * time.Second
)

var ErrMalformedPacket = errors.New("malformed packet")

// Packet 一条完整的客户端消息
type Packet struct {
	MsgID  uint16
	Data   []byte
	Length uint16
}

type Connection interface {
	Send(msgID uint16, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadPacket() (*Packet, error)
}

// WSConnection 把 websocket 连接适配成带封包协议的 Connection。
// 写入由互斥锁串行化，gorilla 不允许并发写。
type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// Send 封包并写出一条消息
func (c *WSConnection) Send(msgID uint16, data []byte) error {
	if len(data) > 0xFFFF {
		return fmt.Errorf("payload too large: %d bytes", len(data))
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	frame := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(frame[0:2], msgID)
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(data)))
	copy(frame[headerSize:], data)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// ReadPacket 读取并解包下一条消息。心跳开启时每次读取都会顺延超时。
func (c *WSConnection) ReadPacket() (*Packet, error) {
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}

	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	if len(frame) < headerSize {
		return nil, ErrMalformedPacket
	}
	length := binary.BigEndian.Uint16(frame[2:4])
	if len(frame) < headerSize+int(length) {
		return nil, ErrMalformedPacket
	}

	return &Packet{
		MsgID:  binary.BigEndian.Uint16(frame[0:2]),
		Length: length,
		Data:   frame[headerSize : headerSize+int(length)],
	}, nil
}

// SetHeartbeat 启用读超时：超过两个心跳周期没有任何数据就判定连接死亡
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
