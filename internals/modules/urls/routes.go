package urls

import (
	"github.com/go-chi/chi/v5"

	middle "keepalive/internals/middleware"
)

func Routes(h *Handler, authMW *middle.AuthMiddleware) chi.Router {
	r := chi.NewRouter()
	r.Use(authMW.Handle)

	r.Get("/get-urls", h.GetURLs)
	r.Post("/add-url", h.AddURL)
	r.Post("/remove-url", h.RemoveURL)
	r.Get("/url-history", h.URLHistory)

	return r
}

/*
- GET: /api/get-urls -> urls of the caller with aggregate status
	req auth : true
	resp : GetURLsResponse

- POST: /api/add-url -> register a url
	req auth : true
	body : URLRequest
	resp : URLsResponse / 400 / 409

- POST: /api/remove-url -> unregister a url
	req auth : true
	body : URLRequest
	resp : URLsResponse / 404

- GET: /api/url-history?url= -> recent probe results, newest first
	req auth : true
	resp : URLHistoryResponse / 404
*/
