package core

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	LiveReloadPath      = "/__clovis_reload"
	reloadMessage       = "reload"
	reloadWriteDeadline = 2 * time.Second
)

type LiveReloaderInterface interface {
	BroadcastReload()
	Handler(http.ResponseWriter, *http.Request)
}

// LiveReloader tells every connected browser tab to reload. Tabs connect
// through the script the Router injects in dev.
type LiveReloader struct {
	clients  map[*websocket.Conn]struct{}
	lock     sync.Mutex
	upgrader websocket.Upgrader
}

var NewLiveReloader = func() LiveReloaderInterface {
	return &LiveReloader{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			// dev only, served to localhost
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (lr *LiveReloader) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := lr.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	lr.lock.Lock()
	lr.clients[conn] = struct{}{}
	lr.lock.Unlock()

	go func() {
		defer lr.remove(conn)

		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}

func (lr *LiveReloader) BroadcastReload() {
	lr.lock.Lock()
	defer lr.lock.Unlock()

	for conn := range lr.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(reloadWriteDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reloadMessage)); err != nil {
			conn.Close()
			delete(lr.clients, conn)
		}
	}
}

func (lr *LiveReloader) clientCount() int {
	lr.lock.Lock()
	defer lr.lock.Unlock()
	return len(lr.clients)
}

func (lr *LiveReloader) remove(conn *websocket.Conn) {
	lr.lock.Lock()
	delete(lr.clients, conn)
	lr.lock.Unlock()
	conn.Close()
}
