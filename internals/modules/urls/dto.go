package urls

import (
	"keepalive/internals/modules/prober"
	"keepalive/internals/modules/status"
)

type URLRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

type URLsResponse struct {
	URLs []string `json:"urls"`
}

type GetURLsResponse struct {
	URLs    []string           `json:"urls"`
	Status  status.Status      `json:"status"`
	Details []status.URLStatus `json:"details"`
}

type URLHistoryResponse struct {
	URL     string          `json:"url"`
	Results []prober.Result `json:"results"`
}
