package server

import (
	"net/http"

	"golang.org/x/net/websocket"

	"tasksync-backend/internal/task"
)

// watchTasks streams snapshots over a websocket: the current snapshot as the
// first frame, then one frame per mutation from any session. Closing the
// socket cancels the subscription with no further side effects.
func (s *Server) watchTasks(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()

		sub, err := s.hub.Subscribe(r.Context(), s.hub.Collection())
		if err != nil {
			return
		}
		defer sub.Cancel()

		// Drain the client side so a peer close is noticed even while no
		// snapshot is pending.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				var discard string
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case snap, ok := <-sub.Snapshots():
				if !ok {
					return
				}
				task.SortNewestFirst(snap)
				if snap == nil {
					snap = []task.Record{}
				}
				if err := websocket.JSON.Send(ws, snap); err != nil {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}).ServeHTTP(w, r)
}
