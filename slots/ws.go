package slots

import (
	"encoding/json"
	"net/http"
	"sync"

	"mindline/models"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; tighten for production
		return true
	},
}

var (
	subscribers = make(map[string][]*websocket.Conn)
	mu          sync.Mutex
)

// HandleWS streams slot status changes for one consultant so clients can
// re-render availability without polling.
func HandleWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	consultantID := ps.ByName("consultantId")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}

	mu.Lock()
	subscribers[consultantID] = append(subscribers[consultantID], conn)
	mu.Unlock()

	for {
		// Keeps the connection alive until the client disconnects
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	mu.Lock()
	conns := subscribers[consultantID]
	newList := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			newList = append(newList, c)
		}
	}
	subscribers[consultantID] = newList
	mu.Unlock()

	conn.Close()
}

// Notify pushes the slot's new state to everyone watching its consultant.
func Notify(consultantID string, slot *models.Slot) {
	data, err := json.Marshal(map[string]interface{}{"slot": slot})
	if err != nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	conns := subscribers[consultantID]
	newList := conns[:0]
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err == nil {
			newList = append(newList, conn)
		} else {
			conn.Close()
		}
	}
	subscribers[consultantID] = newList
}
