package service

import (
	"testing"
	"time"

	"leadmarket_backend/internal/quotes/transport"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
)

func payloadWith(items []transport.ItemInput, subtotal, tax, total int64) transport.QuotePayload {
	return transport.QuotePayload{
		Items:               items,
		SubtotalCents:       subtotal,
		TaxCents:            tax,
		TotalCents:          total,
		EstimatedStartDate:  time.Now().AddDate(0, 0, 7),
		EstimatedCompletion: time.Now().AddDate(0, 0, 21),
	}
}

func TestBuildItemsValid(t *testing.T) {
	payload := payloadWith([]transport.ItemInput{
		{Description: "Demolition", Quantity: 2, UnitPriceCents: 15000, LineTotalCents: 30000},
		{Description: "Tiling", Quantity: 12.5, UnitPriceCents: 4000, LineTotalCents: 50000},
	}, 80000, 16800, 96800)

	items, err := buildItems(uuid.New(), payload)
	if err != nil {
		t.Fatalf("buildItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Position != 0 || items[1].Position != 1 {
		t.Error("items must preserve payload order")
	}
}

func TestBuildItemsLineMismatch(t *testing.T) {
	payload := payloadWith([]transport.ItemInput{
		{Description: "Demolition", Quantity: 2, UnitPriceCents: 15000, LineTotalCents: 31000},
	}, 31000, 0, 31000)

	_, err := buildItems(uuid.New(), payload)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for line mismatch, got %v", err)
	}
}

func TestBuildItemsWithinCentTolerance(t *testing.T) {
	// 3 x 3333 = 9999; a client rounding to 10000 stays within one cent.
	payload := payloadWith([]transport.ItemInput{
		{Description: "Paint", Quantity: 3, UnitPriceCents: 3333, LineTotalCents: 10000},
	}, 10000, 0, 10000)

	if _, err := buildItems(uuid.New(), payload); err != nil {
		t.Fatalf("one-cent drift must be tolerated: %v", err)
	}
}

func TestBuildItemsSubtotalMismatch(t *testing.T) {
	payload := payloadWith([]transport.ItemInput{
		{Description: "Demolition", Quantity: 1, UnitPriceCents: 15000, LineTotalCents: 15000},
	}, 20000, 0, 20000)

	_, err := buildItems(uuid.New(), payload)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for subtotal mismatch, got %v", err)
	}
}

func TestBuildItemsTotalMismatch(t *testing.T) {
	payload := payloadWith([]transport.ItemInput{
		{Description: "Demolition", Quantity: 1, UnitPriceCents: 15000, LineTotalCents: 15000},
	}, 15000, 3000, 20000)

	_, err := buildItems(uuid.New(), payload)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for total mismatch, got %v", err)
	}
}

func TestBuildItemsRejectsEmptyAndNegative(t *testing.T) {
	if _, err := buildItems(uuid.New(), payloadWith(nil, 0, 0, 0)); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for empty items, got %v", err)
	}

	payload := payloadWith([]transport.ItemInput{
		{Description: "Refund", Quantity: -1, UnitPriceCents: 5000, LineTotalCents: -5000},
	}, -5000, 0, -5000)
	if _, err := buildItems(uuid.New(), payload); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}
}

func TestValidateSchedule(t *testing.T) {
	start := time.Now().AddDate(0, 0, 7)
	if err := validateSchedule(start, start.AddDate(0, 0, 14)); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}
	if err := validateSchedule(start, start); err == nil {
		t.Fatal("completion equal to start must be rejected")
	}
	if err := validateSchedule(start, start.AddDate(0, 0, -1)); err == nil {
		t.Fatal("completion before start must be rejected")
	}
}
