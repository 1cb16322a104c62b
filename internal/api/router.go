// Package api is the JSON gateway in front of the custody core. A chat
// adapter or an operator tool authenticates with a bearer token and calls
// the same operations the bot offers.
package api

import (
	"net/http"

	"github.com/andrew11morozovtwo/bot-accounting/internal/custody"
	"github.com/andrew11morozovtwo/bot-accounting/internal/model"
	"github.com/andrew11morozovtwo/bot-accounting/internal/session"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *custody.Service, engine *session.Engine, sweeper Sweeper, jwtSecret string) http.Handler {
	mux := http.NewServeMux()
	db := svc.DB()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	catalogHandler := &CatalogHandler{DB: db}
	custodyHandler := &CustodyHandler{Custody: svc}
	returnsHandler := &ReturnsHandler{Custody: svc}
	sessionsHandler := &SessionsHandler{Engine: engine}
	reportHandler := &ReportHandler{DB: db}
	autosignHandler := &AutosignHandler{Sweeper: sweeper}

	authMW := AuthMiddleware(jwtSecret, db)
	active := func(h http.HandlerFunc) http.Handler {
		return authMW(Require((*model.User).Active)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMW(Require(model.CanManageUsers)(h))
	}

	// Any known user, including ones still waiting for a role.
	mux.Handle("GET /api/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/elevate", authMW(http.HandlerFunc(authHandler.Elevate)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Catalog.
	mux.Handle("GET /api/categories", active(catalogHandler.ListCategories))
	mux.Handle("POST /api/categories", authMW(Require(model.CanManageCatalog)(http.HandlerFunc(catalogHandler.CreateCategory))))
	mux.Handle("GET /api/assets", active(catalogHandler.ListAssets))
	mux.Handle("GET /api/assets/{id}", active(catalogHandler.GetAsset))
	mux.Handle("GET /api/assets/{id}/instances", active(catalogHandler.ListInstances))
	mux.Handle("GET /api/photos/{id}", active(catalogHandler.GetPhoto))

	// Custody. Capabilities are checked by the custody service.
	mux.Handle("POST /api/incoming", active(custodyHandler.Incoming))
	mux.Handle("POST /api/issue", active(custodyHandler.Issue))
	mux.Handle("POST /api/transfer", active(custodyHandler.Transfer))
	mux.Handle("POST /api/writeoff", active(custodyHandler.WriteOff))
	mux.Handle("GET /api/operations", active(custodyHandler.ListOperations))
	mux.Handle("POST /api/operations/{id}/confirm", active(custodyHandler.Confirm))
	mux.Handle("GET /api/me/holdings", active(custodyHandler.Holdings))

	// Returns.
	mux.Handle("POST /api/returns", active(returnsHandler.Request))
	mux.Handle("GET /api/returns", active(returnsHandler.List))
	mux.Handle("POST /api/returns/{id}/approve", active(returnsHandler.Approve))
	mux.Handle("POST /api/returns/{id}/reject", active(returnsHandler.Reject))

	// Conversational forms.
	mux.Handle("POST /api/session", active(sessionsHandler.Start))
	mux.Handle("GET /api/session", active(sessionsHandler.Get))
	mux.Handle("POST /api/session/input", active(sessionsHandler.Input))
	mux.Handle("POST /api/session/confirm", active(sessionsHandler.Confirm))
	mux.Handle("DELETE /api/session", active(sessionsHandler.Cancel))

	mux.Handle("GET /api/report", active(reportHandler.Get))

	// System administration.
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("POST /api/autosign/run", admin(autosignHandler.Run))

	return mux
}
