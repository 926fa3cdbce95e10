package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/progress"
)

// eventStream relays broker events as server-sent events. Each event is
// written as "event: <name>" followed by its JSON body.
type eventStream struct {
	broker *progress.Broker
	logger log.Logger
}

func (s *eventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	events, unsubscribe := s.broker.Subscribe()
	defer unsubscribe()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Error(err, "Event stream not supported")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error(err, "Encoding event", "event", e.Name)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
