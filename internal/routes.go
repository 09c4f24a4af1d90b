package internal

import (
	"net/http"

	"datasync/internal/controllers"
	"datasync/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/snapshot", http.HandlerFunc(apiController.GetSnapshot))
	routers.Get("/runs/last", http.HandlerFunc(apiController.GetLastRun))
	routers.Post("/run", http.HandlerFunc(apiController.TriggerRun))
	return routers
}
