package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/eaven-routing/internal/middleware"
)

func ticketRoutes(router *mux.Router, deps Deps) {
	protectedRouter := router.PathPrefix("/tickets").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware(deps.JWTSecret), middleware.ResponseWrapperMiddleware)

	protectedRouter.HandleFunc("", deps.Tickets.CreateTicket).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/unassigned", deps.Tickets.ListUnassigned).Methods(http.MethodGet)
}
