package feed

import (
	"encoding/json"

	"github.com/uistaff/invento-backend/pkg/enums"
)

// Event is one change pushed to realtime subscribers. Data carries the
// full document as JSON with identifiers rendered as strings, so
// clients can rebuild state without a follow-up read.
type Event struct {
	Name       string           `json:"event"`
	Collection enums.Collection `json:"collection"`
	Op         enums.ChangeOp   `json:"op"`
	Data       json.RawMessage  `json:"data"`
	Seq        int64            `json:"-"`
}
