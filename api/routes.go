package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// setupRoutes mounts the public read routes and the admin authoring routes
func setupRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware, accessLogger zerolog.Logger) {
	r.Get("/health", handlers.healthHandler.health())
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(HTTPLoggingMiddleware(accessLogger))

		r.Route("/blog", func(r chi.Router) {
			// Public endpoints
			r.Get("/", handlers.blogPostHandler.listPosts())
			r.Get("/featured", handlers.blogPostHandler.getFeatured())
			r.Get("/categories", handlers.blogPostHandler.listCategories())
			r.Get("/tags", handlers.blogPostHandler.listTags())
			r.Get("/{slug}", handlers.blogPostHandler.getBySlug())

			// Authoring endpoints
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.authenticate)

				r.Get("/id/{id}", handlers.blogPostHandler.getByID())
				r.Post("/", handlers.blogPostHandler.createPost())
				r.Put("/{id}", handlers.blogPostHandler.updatePost())
				r.Delete("/{id}", handlers.blogPostHandler.deletePost())
			})
		})
	})
}
