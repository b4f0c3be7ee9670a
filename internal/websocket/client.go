package websocket

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания между pong сообщениями
	pongWait = 60 * time.Second

	// Интервал отправки ping (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения; лента однонаправленная,
	// клиенты ничего содержательного не шлют
	maxMessageSize = 512

	// Размер буфера отправки клиента
	clientSendBufferSize = 256
)

// allowedOrigins загружается один раз из ALLOWED_ORIGINS (через запятую).
// Пустое значение или "*" разрешает все origins (локальная разработка).
var allowedOrigins = loadAllowedOrigins()

func loadAllowedOrigins() map[string]struct{} {
	env := os.Getenv("ALLOWED_ORIGINS")
	if env == "" || env == "*" {
		return nil // nil = разрешены все
	}
	origins := make(map[string]struct{})
	for _, origin := range strings.Split(env, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins[origin] = struct{}{}
		}
	}
	return origins
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // не-браузерные клиенты (curl, сервисы)
	}
	if allowedOrigins == nil {
		return true
	}
	_, ok := allowedOrigins[origin]
	return ok
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	CheckOrigin:       checkOrigin,
	EnableCompression: true,
}

// Client представляет одно WebSocket соединение ленты сделок
//
// Каждый клиент имеет две горутины: readPump контролирует живость
// соединения, writePump пишет сообщения из буферизованного канала.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
}

// readPump дочитывает control-сообщения и закрывает клиента при обрыве
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Лента однонаправленная: входящие сообщения игнорируются,
		// чтение нужно только для обработки close/pong
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("trade feed read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту и поддерживает соединение ping'ами
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS обрабатывает подключение нового подписчика ленты сделок
//
// Использование:
//
//	router.HandleFunc("/ws/trades", hub.ServeWS)
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("trade feed upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		hub:  h,
		send: make(chan []byte, clientSendBufferSize),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
