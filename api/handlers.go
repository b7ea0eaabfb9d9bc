package api

import (
	"github.com/rpupo63/meetup-site-backend/services"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(service *services.PostService, r router) *routeHandlers {
	return &routeHandlers{
		blogPostHandler: newBlogPostHandler(service),
		healthHandler:   newHealthHandler(r.startupTime, r.config.StoreType, r.config.CacheType),
	}
}
