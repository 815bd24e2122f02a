package deductions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/marketsync-backend/pkg/db/models"
	"github.com/angelmondragon/marketsync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketsync-backend/pkg/errors"
)

// AuditSummary is the reconciliation view of deduction outcomes.
type AuditSummary struct {
	From     time.Time                 `json:"from"`
	To       time.Time                 `json:"to"`
	Total    int                       `json:"total"`
	ByStatus map[enums.AuditStatus]int `json:"by_status"`
	NotFound []models.ProductAudit     `json:"not_found"`
}

// AuditSummary counts audits created in [from, to) per status and lists the
// NOT_FOUND rows. Rows before the tracking activation date are hidden.
func (s *Service) AuditSummary(ctx context.Context, from, to time.Time) (*AuditSummary, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	if !s.activation.IsZero() && from.Before(s.activation) {
		from = s.activation
	}

	summary := &AuditSummary{
		From:     from,
		To:       to,
		ByStatus: map[enums.AuditStatus]int{},
		NotFound: []models.ProductAudit{},
	}
	for _, status := range []enums.AuditStatus{
		enums.AuditStatusOKInterno,
		enums.AuditStatusOKFull,
		enums.AuditStatusNotFound,
		enums.AuditStatusCancelled,
	} {
		summary.ByStatus[status] = 0
	}
	if !to.After(from) {
		return summary, nil
	}

	rows, err := s.audits.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		summary.Total++
		summary.ByStatus[row.Status]++
		if row.Status == enums.AuditStatusNotFound {
			summary.NotFound = append(summary.NotFound, row)
		}
	}
	return summary, nil
}

func rawPayload(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
