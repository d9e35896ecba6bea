package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"leadmarket/internal/domain"
)

func errorIsConflict(err error) bool {
	return errors.Is(err, domain.ErrConflict)
}

// parseRefundFilter reads the optional status, contractor_id, from, and to
// query parameters. Timestamps are RFC 3339.
func parseRefundFilter(r *http.Request) (domain.RefundRequestFilter, error) {
	var filter domain.RefundRequestFilter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status := domain.RefundRequestStatus(v)
		if !status.IsValid() {
			return filter, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, v)
		}
		filter.Status = &status
	}
	if v := q.Get("contractor_id"); v != "" {
		filter.ContractorID = &v
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: from must be RFC 3339", domain.ErrValidation)
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: to must be RFC 3339", domain.ErrValidation)
		}
		filter.To = &t
	}
	return filter, nil
}
