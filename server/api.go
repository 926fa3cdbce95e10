package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/qtshock/qtshockd/config"
	"github.com/qtshock/qtshockd/pkg/log"
	"github.com/qtshock/qtshockd/trigger"
)

// The handlers only translate between HTTP and the collaborators in
// Config; the flashing and trigger logic lives in their own packages.

type api struct {
	flasher Flasher
	trigger Triggerer
	state   *config.State
	logger  log.Logger
}

// FlashRequest is the body of POST /api/flash.
type FlashRequest struct {
	Endpoint string `json:"endpoint"`
	Source   string `json:"source"`
}

// FlashResponse carries the UI markup of a flash run's outcome.
type FlashResponse struct {
	Message string `json:"message"`
}

// StrengthRequest is the body of PUT /api/strength/{kind}.
type StrengthRequest struct {
	Strength int `json:"strength"`
}

var errUnknownStrength = errors.New("unknown strength kind")

// apiPrefix is prepended to every API route. Routes are registered on the
// root router with full paths: a PathPrefix subrouter in mux v1.8.1 loses
// method mismatches and answers 404 instead of 405.
const apiPrefix = "/api"

func serveAPI(r *mux.Router, cfg Config, logger log.Logger) {
	a := &api{
		flasher: cfg.Flasher,
		trigger: cfg.Trigger,
		state:   cfg.State,
		logger:  logger,
	}
	r.HandleFunc(apiPrefix+"/endpoints", a.Endpoints).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/flash", a.Flash).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/state", a.State).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/strength/{kind}", a.Strength).Methods(http.MethodPut)
	if cfg.Trigger != nil {
		r.HandleFunc(apiPrefix+"/trigger/{interaction}", a.Trigger).Methods(http.MethodPost)
	}
	if cfg.Broker != nil {
		r.Handle(apiPrefix+"/events", &eventStream{broker: cfg.Broker, logger: logger}).Methods(http.MethodGet)
	}
	r.MethodNotAllowedHandler = http.HandlerFunc(a.methodNotAllowed)
}

func (a *api) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.respondError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
}

func (a *api) Endpoints(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(a.flasher.ListUSBEndpoints())); err != nil {
		a.logger.Error(err, "Writing endpoints")
	}
}

func (a *api) Flash(w http.ResponseWriter, r *http.Request) {
	var req FlashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, err)
		return
	}

	// A dropped client must not abort a flash half way through.
	ctx := context.WithoutCancel(r.Context())
	msg := a.flasher.FlashDeviceFirmware(ctx, req.Endpoint, req.Source)
	a.respond(w, FlashResponse{Message: msg})
}

func (a *api) State(w http.ResponseWriter, r *http.Request) {
	a.respond(w, a.state.Snapshot())
}

func (a *api) Strength(w http.ResponseWriter, r *http.Request) {
	var req StrengthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	switch kind := mux.Vars(r)["kind"]; kind {
	case "shock":
		err = a.state.SetShockStrength(req.Strength)
	case "vibrate":
		err = a.state.SetVibrateStrength(req.Strength)
	default:
		err = fmt.Errorf("%w: %q", errUnknownStrength, kind)
	}
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err)
		return
	}
	a.respond(w, a.state.Snapshot())
}

func (a *api) Trigger(w http.ResponseWriter, r *http.Request) {
	in, err := trigger.ParseInteraction(mux.Vars(r)["interaction"])
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err)
		return
	}

	shocker := 0
	if v := r.URL.Query().Get("shocker"); v != "" {
		shocker, err = strconv.Atoi(v)
		if err != nil || shocker < 0 {
			a.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid shocker %q", v))
			return
		}
	}

	if err := a.trigger.Trigger(r.Context(), shocker, in); err != nil {
		a.respondError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error(err, "Encoding response")
	}
}

func (a *api) respondError(w http.ResponseWriter, status int, err error) {
	type jsonError struct {
		Error string `json:"error"`
	}
	a.logger.Debug("Returning error", "status", status, "error", err.Error())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// if even the encoder of the error errors, just log the error
	if err := json.NewEncoder(w).Encode(jsonError{Error: err.Error()}); err != nil {
		a.logger.Error(err, "Writing error")
	}
}
