package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/progress"
)

// DefaultGSIAddr is where the game is configured to post state.
const DefaultGSIAddr = "127.0.0.1:3005"

// GSI messages.
const (
	MsgGSIOn     = "Toggled CS2 integration ON"
	MsgGSIOff    = "Toggled CS2 integration OFF"
	MsgGSIInUse  = "Something went wrong when starting the CS2 integration. The port provided is already in use."
	gsiShutdown  = 5 * time.Second
	gsiMaxBody   = 1 << 20
	deathShocker = 0
)

// GameState is the part of a game-state update the counter reads.
type GameState struct {
	Provider *struct {
		SteamID string `json:"steamid"`
	} `json:"provider"`
	Player *struct {
		SteamID    string `json:"steamid"`
		MatchStats *struct {
			Deaths int `json:"deaths"`
		} `json:"match_stats"`
	} `json:"player"`
}

// DeathCounter tracks the death count of the local player.
type DeathCounter struct {
	mu     sync.Mutex
	deaths int
}

// Observe records s and reports whether the local player died since the
// previous update. Updates about spectated players are ignored. A count
// lower than the recorded one starts a new match.
func (c *DeathCounter) Observe(s *GameState) bool {
	if s == nil || s.Provider == nil || s.Player == nil || s.Player.MatchStats == nil {
		return false
	}
	if s.Provider.SteamID != s.Player.SteamID {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deaths := s.Player.MatchStats.Deaths
	if c.deaths > deaths {
		c.deaths = 0
	}
	if c.deaths < deaths {
		c.deaths = deaths
		return true
	}
	return false
}

// Deaths returns the recorded count.
func (c *DeathCounter) Deaths() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deaths
}

// Triggerer runs an interaction on a shocker.
type Triggerer interface {
	Trigger(ctx context.Context, shocker int, in Interaction) error
}

// GSIHandler receives game-state updates and shocks on every death.
type GSIHandler struct {
	Counter *DeathCounter
	Trigger Triggerer
	Logger  log.Logger
}

func (h *GSIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var state GameState
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, gsiMaxBody)).Decode(&state); err != nil {
		http.Error(w, "invalid game state", http.StatusBadRequest)
		return
	}

	if h.Counter.Observe(&state) {
		h.logger().Info("Player died", "deaths", h.Counter.Deaths())
		if err := h.Trigger.Trigger(r.Context(), deathShocker, Shock); err != nil {
			h.logger().Error(err, "Failed to shock on death")
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *GSIHandler) logger() log.Logger {
	if h.Logger == nil {
		return log.Std()
	}
	return h.Logger
}

// ServeGSI runs the game-state receiver on addr until ctx is done.
func ServeGSI(ctx context.Context, addr string, h http.Handler, e progress.Emitter) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		emit(e, GSIEventName, MsgGSIInUse)
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return serveGSI(ctx, ln, h, e)
}

func serveGSI(ctx context.Context, ln net.Listener, h http.Handler, e progress.Emitter) error {
	mux := http.NewServeMux()
	mux.Handle("/", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	emit(e, GSIEventName, MsgGSIOn)

	select {
	case err := <-errCh:
		emit(e, GSIEventName, MsgGSIOff)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gsiShutdown)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serr := <-errCh; !errors.Is(serr, http.ErrServerClosed) && err == nil {
		err = serr
	}
	emit(e, GSIEventName, MsgGSIOff)
	return err
}
