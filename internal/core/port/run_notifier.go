package port

import (
	"github.com/google/uuid"
)

const (
	RunEventPageFetched = "page_fetched"
	RunEventFinished    = "run_finished"
)

// RunEvent - событие выгрузки для подписчиков
type RunEvent struct {
	Type  string    `json:"type"`
	RunID uuid.UUID `json:"run_id"`
	Data  any       `json:"data"`
}
