package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat  = 1
	MsgTypeJoinRoom   = 101
	MsgTypeCreateRoom = 103
	MsgTypeSetReady   = 104
	MsgTypeChat       = 105
	MsgTypeInput      = 201
)

var sendMutex sync.Mutex

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	sendMutex.Lock()
	defer sendMutex.Unlock()

	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	roomID := flag.String("room", "", "room to join (empty creates a new room)")
	playerID := flag.String("player", "", "player id (empty lets the server assign one)")
	name := flag.String("name", "guest", "player name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	join := map[string]string{
		"room_id":      *roomID,
		"player_id":    *playerID,
		"name":         *name,
		"display_name": *name,
	}
	joinData, _ := json.Marshal(join)

	if *roomID == "" {
		log.Println("Sending Create Room request...")
		if err := send(c, MsgTypeCreateRoom, joinData); err != nil {
			log.Println("Write error:", err)
			return
		}
	} else {
		log.Printf("Joining room %s...", *roomID)
		if err := send(c, MsgTypeJoinRoom, joinData); err != nil {
			log.Println("Write error:", err)
			return
		}
	}

	// 心跳保活，服务端空闲超时会断开连接
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := send(c, MsgTypeHeartbeat, nil); err != nil {
					return
				}
			}
		}
	}()

	log.Println("Commands: ready | unready | say <msg> | left | right | jump | stop")

	var inputTick int64

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)

			var msgID uint16
			var data []byte

			switch {
			case text == "ready" || text == "unready":
				msgID = MsgTypeSetReady
				data, _ = json.Marshal(map[string]bool{"ready": text == "ready"})
			case strings.HasPrefix(text, "say "):
				msgID = MsgTypeChat
				data, _ = json.Marshal(map[string]string{"message": strings.TrimPrefix(text, "say ")})
			case text == "left" || text == "right" || text == "jump" || text == "stop":
				msgID = MsgTypeInput
				inputTick++
				actions := []string{}
				switch text {
				case "left":
					actions = append(actions, "move_left")
				case "right":
					actions = append(actions, "move_right")
				case "jump":
					actions = append(actions, "jump")
				}
				data, _ = json.Marshal(map[string]interface{}{"tick": inputTick, "actions": actions})
			default:
				continue
			}

			if err := send(c, msgID, data); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", text)
		}
	}
}
