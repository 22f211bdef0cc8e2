package alert

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeURLDown      = "url.down"
	TypeURLRecovered = "url.recovered"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	URL        string    `json:"url"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	At         time.Time `json:"at"`
}
