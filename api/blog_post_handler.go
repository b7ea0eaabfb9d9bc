package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/meetup-site-backend/errs"
	"github.com/rpupo63/meetup-site-backend/models"
	"github.com/rpupo63/meetup-site-backend/services"
)

type blogPostHandler struct {
	responder Responder
	logger    zerolog.Logger
	service   *services.PostService
}

func newBlogPostHandler(service *services.PostService) blogPostHandler {
	logger := log.With().Str("handlerName", "blogPostHandler").Logger()

	return blogPostHandler{
		responder: NewResponder(logger),
		logger:    logger,
		service:   service,
	}
}

// listPosts returns one page of published posts
// @Summary List published blog posts
// @Description Filters by category, tag, author and a case-insensitive search over title, excerpt and content. Newest first.
// @Tags Blog Posts
// @Produce json
// @Param page query int false "Page number, 1-based" default(1)
// @Param limit query int false "Page size"
// @Param category query string false "Exact category"
// @Param tag query string false "Tag the post must carry"
// @Param search query string false "Substring to search for"
// @Param author query string false "Case-insensitive substring of the author name"
// @Success 200 {object} models.PostPage
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid paging parameters"
// @Failure 503 {object} ErrorResponse "Service Unavailable - Post store unavailable"
// @Router /blog [get]
func (h blogPostHandler) listPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := positiveIntParam(r, "page", 1)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		limit, err := positiveIntParam(r, "limit", h.service.Config().DefaultPageSize)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		q := r.URL.Query()
		filter := models.PostFilter{
			Category: q.Get("category"),
			Tag:      q.Get("tag"),
			Search:   q.Get("search"),
			Author:   q.Get("author"),
		}

		result, err := h.service.ListPosts(r.Context(), filter, page, limit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, result)
	}
}

// getFeatured returns the newest featured published posts
// @Summary Featured blog posts
// @Tags Blog Posts
// @Produce json
// @Param limit query int false "Maximum number of posts" default(5)
// @Success 200 {array} models.BlogPost
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid limit"
// @Router /blog/featured [get]
func (h blogPostHandler) getFeatured() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := positiveIntParam(r, "limit", h.service.Config().DefaultFeaturedLimit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		posts, err := h.service.GetFeatured(r.Context(), limit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, posts)
	}
}

// listCategories
// @Summary Categories in use by published posts
// @Tags Blog Posts
// @Produce json
// @Success 200 {array} string
// @Router /blog/categories [get]
func (h blogPostHandler) listCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.service.ListCategories(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, categories)
	}
}

// listTags
// @Summary Tags in use by published posts
// @Tags Blog Posts
// @Produce json
// @Success 200 {array} string
// @Router /blog/tags [get]
func (h blogPostHandler) listTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := h.service.ListTags(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, tags)
	}
}

// getBySlug returns a published post and counts the view
// @Summary Get blog post by slug
// @Tags Blog Posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.BlogPost
// @Failure 404 {object} ErrorResponse "Not Found - No published post with this slug"
// @Router /blog/{slug} [get]
func (h blogPostHandler) getBySlug() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, post)
	}
}

// getByID returns a post of any status for the editor
// @Summary Get blog post by id
// @Tags Blog Posts Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Success 200 {object} models.BlogPost
// @Failure 404 {object} ErrorResponse "Not Found - Blog post not found"
// @Router /blog/id/{id} [get]
func (h blogPostHandler) getByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, post)
	}
}

// createPost
// @Summary Create blog post
// @Description The slug is derived from the title when omitted. publishedAt is set when the post is created as published.
// @Tags Blog Posts Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param blogPost body services.CreatePostInput true "Blog post data"
// @Success 201 {object} CreatedResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blog post data"
// @Failure 409 {object} ErrorResponse "Conflict - Slug already in use"
// @Router /blog [post]
func (h blogPostHandler) createPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.CreatePostInput
		if err := decodeJSON(w, r, &input, "blog post"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		post, err := h.service.CreatePost(r.Context(), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.auditLogger(r).Info().Str("postID", post.ID).Msg("post created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, CreatedResponse{ID: post.ID})
	}
}

// updatePost
// @Summary Update blog post
// @Description Partial update. Omitted fields are left unchanged. id and createdAt cannot change.
// @Tags Blog Posts Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Param blogPost body services.UpdatePostInput true "Fields to change"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blog post data"
// @Failure 404 {object} ErrorResponse "Not Found - Blog post not found"
// @Failure 409 {object} ErrorResponse "Conflict - Slug already in use"
// @Router /blog/{id} [put]
func (h blogPostHandler) updatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch services.UpdatePostInput
		if err := decodeJSON(w, r, &patch, "blog post"); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		id := chi.URLParam(r, "id")
		if _, err := h.service.UpdatePost(r.Context(), id, patch); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.auditLogger(r).Info().Str("postID", id).Msg("post updated")
		h.responder.WriteJSON(w, MessageResponse{Message: "blog post updated successfully"})
	}
}

// deletePost
// @Summary Delete blog post
// @Tags Blog Posts Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse "Not Found - Blog post not found"
// @Router /blog/{id} [delete]
func (h blogPostHandler) deletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.service.DeletePost(r.Context(), id); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.auditLogger(r).Info().Str("postID", id).Msg("post deleted")
		h.responder.WriteJSON(w, MessageResponse{Message: "blog post deleted successfully"})
	}
}

func (h blogPostHandler) auditLogger(r *http.Request) *zerolog.Logger {
	logger := h.logger
	if subject, err := ctxGetAdminSubject(r.Context()); err == nil {
		logger = logger.With().Str("admin", subject).Logger()
	}
	return &logger
}

// positiveIntParam reads an optional positive integer query parameter
func positiveIntParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errs.NewValidationError(name, name+" must be a positive integer")
	}
	return n, nil
}
