package server

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Dashboards connect from arbitrary origins; auth is the token query
// parameter, checked by the hub after the upgrade.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	member, ok := s.hub.Admit(conn, r.URL.Query().Get("token"))
	if !ok {
		return
	}
	s.hub.Relay(member)
}
