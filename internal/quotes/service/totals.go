package service

import (
	"fmt"
	"math"
	"time"

	"leadmarket_backend/internal/quotes/repository"
	"leadmarket_backend/internal/quotes/transport"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
)

// centTolerance absorbs rounding drift between a client's float arithmetic
// and ours. One cent per check, no more.
const centTolerance = 1

const maxItems = 100

// buildItems validates a quote payload's arithmetic and produces the line
// items. Each line must satisfy quantity x unit price = line total, the
// subtotal must be the exact sum of line totals, and subtotal + tax = total.
func buildItems(quoteID uuid.UUID, payload transport.QuotePayload) ([]repository.Item, error) {
	if len(payload.Items) == 0 {
		return nil, apperr.Validation("a quote needs at least one line item")
	}
	if len(payload.Items) > maxItems {
		return nil, apperr.Validation(fmt.Sprintf("a quote may carry at most %d line items", maxItems))
	}

	items := make([]repository.Item, 0, len(payload.Items))
	var subtotal int64
	for i, in := range payload.Items {
		if in.Quantity <= 0 {
			return nil, apperr.Validation(fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		if in.UnitPriceCents < 0 {
			return nil, apperr.Validation(fmt.Sprintf("item %d: unit price cannot be negative", i+1))
		}

		expected := int64(math.Round(in.Quantity * float64(in.UnitPriceCents)))
		if diff(expected, in.LineTotalCents) > centTolerance {
			return nil, apperr.Validation(fmt.Sprintf("item %d: line total does not match quantity x unit price", i+1))
		}

		subtotal += in.LineTotalCents
		items = append(items, repository.Item{
			ID:             uuid.New(),
			QuoteID:        quoteID,
			Description:    in.Description,
			Quantity:       in.Quantity,
			UnitPriceCents: in.UnitPriceCents,
			LineTotalCents: in.LineTotalCents,
			Position:       i,
		})
	}

	if diff(subtotal, payload.SubtotalCents) > centTolerance {
		return nil, apperr.Validation("subtotal does not match the sum of line totals")
	}
	if payload.TaxCents < 0 {
		return nil, apperr.Validation("tax cannot be negative")
	}
	if diff(payload.SubtotalCents+payload.TaxCents, payload.TotalCents) > centTolerance {
		return nil, apperr.Validation("total does not match subtotal plus tax")
	}

	return items, nil
}

// validateSchedule enforces that the estimated completion follows the start.
func validateSchedule(start, completion time.Time) error {
	if !completion.After(start) {
		return apperr.Validation("estimated completion must be after the estimated start")
	}
	return nil
}

func diff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
