// Package v1 contains the full set of handler functions and
// routes supported by the v1 web api.
package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/adamwoolhether/lattice/app/services/node/handlers/v1/private"
	"github.com/adamwoolhether/lattice/app/services/node/handlers/v1/public"
	"github.com/adamwoolhether/lattice/foundation/blocklattice/state"
	"github.com/adamwoolhether/lattice/foundation/events"
	"github.com/adamwoolhether/lattice/foundation/web"
)

const version = "v1"

// Config contains all mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)
	app.Handle(http.MethodGet, version, "/tx/:hash", pbl.Transaction)
	app.Handle(http.MethodGet, version, "/accounts/:publickey", pbl.Account)
	app.Handle(http.MethodGet, version, "/representatives", pbl.Representatives)
	app.Handle(http.MethodGet, version, "/elections", pbl.Elections)
}

// PrivateRoutes binds all version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/peers", prv.Peers)
	app.Handle(http.MethodPost, version, "/node/peers", prv.AddPeer)
	app.Handle(http.MethodPost, version, "/node/tx/submit", prv.SubmitNodeTransaction)
	app.Handle(http.MethodPost, version, "/node/vote/submit", prv.SubmitVote)
	app.Handle(http.MethodGet, version, "/node/votes/:hash", prv.Votes)
}
