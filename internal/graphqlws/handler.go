// Package graphqlws реализует серверную часть сабпротокола
// graphql-transport-ws поверх gorilla/websocket — ровно столько, сколько
// нужно для долгоживущих подписок: connection_init/ack, subscribe/next/
// complete и ping/pong для keepalive.
package graphqlws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/graphql-go/graphql"

	"github.com/mkorobeinikov/graphql-blog-service/internal/dataloader"
	"github.com/mkorobeinikov/graphql-blog-service/internal/storage"
)

const (
	// Subprotocol — имя сабпротокола, которое ожидает клиент graphql-ws.
	Subprotocol = "graphql-transport-ws"

	keepAliveInterval = 10 * time.Second

	// Код закрытия из протокола: повторный subscribe с уже занятым id.
	closeSubscriberExists = 4409
)

// Типы сообщений протокола.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// Handler принимает websocket-соединения и исполняет подписки против схемы.
type Handler struct {
	schema   graphql.Schema
	store    storage.Storage
	upgrader websocket.Upgrader
}

// NewHandler создает websocket-обработчик подписок.
func NewHandler(schema graphql.Schema, store storage.Storage) *Handler {
	return &Handler{
		schema: schema,
		store:  store,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{Subprotocol},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("graphqlws: upgrade failed: %v", err)
		return
	}

	c := &connection{
		handler: h,
		ws:      ws,
		ops:     make(map[string]context.CancelFunc),
	}
	c.serve(r.Context())
}

// connection — одно клиентское соединение с собственным набором активных
// операций. Запись в сокет сериализуется мьютексом: у gorilla может быть
// только один писатель.
type connection struct {
	handler *Handler
	ws      *websocket.Conn

	writeMu sync.Mutex

	opsMu sync.Mutex
	ops   map[string]context.CancelFunc
}

func (c *connection) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		// Отмена контекста соединения снимает все подписки с шины —
		// ни одного протухшего слушателя после дисконнекта.
		cancel()
		c.ws.Close()
	}()

	go c.keepAlive(ctx)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("graphqlws: malformed message: %v", err)
			return
		}

		switch msg.Type {
		case msgConnectionInit:
			c.write(message{Type: msgConnectionAck})
		case msgPing:
			c.write(message{Type: msgPong})
		case msgPong:
			// keepalive-ответ клиента, ничего не делаем
		case msgSubscribe:
			c.startOperation(ctx, msg)
		case msgComplete:
			c.stopOperation(msg.ID)
		}
	}
}

// startOperation запускает операцию из subscribe-сообщения и стримит ее
// результаты обратно клиенту, пока операция не завершится или клиент не
// пришлет complete.
func (c *connection) startOperation(connCtx context.Context, msg message) {
	var payload subscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("graphqlws: malformed subscribe payload: %v", err)
		return
	}

	opCtx, cancel := context.WithCancel(connCtx)
	// Лоадеры живут столько же, сколько операция.
	opCtx = dataloader.Attach(opCtx, c.handler.store)

	c.opsMu.Lock()
	if _, exists := c.ops[msg.ID]; exists {
		c.opsMu.Unlock()
		cancel()
		// Протокол требует закрыть соединение целиком, а не молча
		// проигнорировать повторный id.
		c.closeWithCode(closeSubscriberExists, "subscriber already exists: "+msg.ID)
		return
	}
	c.ops[msg.ID] = cancel
	c.opsMu.Unlock()

	results := graphql.Subscribe(graphql.Params{
		Schema:         c.handler.schema,
		RequestString:  payload.Query,
		OperationName:  payload.OperationName,
		VariableValues: payload.Variables,
		Context:        opCtx,
	})

	go func() {
		defer c.stopOperation(msg.ID)

		for result := range results {
			if result.Data == nil && len(result.Errors) > 0 {
				c.writeResult(msg.ID, msgError, result.Errors)
				return
			}
			c.writeResult(msg.ID, msgNext, result)
		}
		// Источник иссяк (отписка или закрытие шины) — сообщаем клиенту.
		select {
		case <-opCtx.Done():
		default:
			c.write(message{ID: msg.ID, Type: msgComplete})
		}
	}()
}

func (c *connection) stopOperation(id string) {
	c.opsMu.Lock()
	if cancel, ok := c.ops[id]; ok {
		delete(c.ops, id)
		cancel()
	}
	c.opsMu.Unlock()
}

func (c *connection) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.write(message{Type: msgPing})
		}
	}
}

func (c *connection) writeResult(id, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("graphqlws: marshal result: %v", err)
		return
	}
	c.write(message{ID: id, Type: msgType, Payload: data})
}

// closeWithCode отправляет клиенту close-фрейм с кодом протокола и закрывает
// сокет; читающий цикл завершится ошибкой чтения и снимет все операции.
func (c *connection) closeWithCode(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(time.Second)
	if err := c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		log.Printf("graphqlws: close failed: %v", err)
	}
	c.ws.Close()
}

func (c *connection) write(msg message) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		// Доставка best-effort: упавшая запись не должна ронять
		// ни мутацию-источник, ни другие подписки.
		log.Printf("graphqlws: write failed: %v", err)
	}
}
