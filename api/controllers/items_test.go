package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uistaff/invento-backend/internal/inventory"
	pkgauth "github.com/uistaff/invento-backend/pkg/auth"
	"github.com/uistaff/invento-backend/pkg/db/models"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func TestItemConsume(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	itemID := uuid.New()

	post := func(stub *stubInventoryService, principal *pkgauth.Principal, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/items/consume", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if principal != nil {
			req = req.WithContext(pkgauth.WithPrincipal(req.Context(), *principal))
		}
		rec := httptest.NewRecorder()
		ItemConsume(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing quantity", func(t *testing.T) {
		stub := &stubInventoryService{}
		rec := post(stub, &pkgauth.Principal{UserID: userID}, `{"item_id":"`+itemID.String()+`"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing quantity, got %d", rec.Code)
		}
		if stub.consumed != nil {
			t.Fatalf("expected ConsumeStock not to be invoked")
		}
	})

	t.Run("missing item reference", func(t *testing.T) {
		stub := &stubInventoryService{}
		rec := post(stub, &pkgauth.Principal{UserID: userID}, `{"quantity":2}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 without item_id or name, got %d", rec.Code)
		}
	})

	t.Run("invalid item id", func(t *testing.T) {
		stub := &stubInventoryService{}
		rec := post(stub, &pkgauth.Principal{UserID: userID}, `{"item_id":"not-a-uuid","quantity":2}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad item_id, got %d", rec.Code)
		}
	})

	t.Run("insufficient stock", func(t *testing.T) {
		stub := &stubInventoryService{
			consumeErr: pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 1 left"),
		}
		rec := post(stub, &pkgauth.Principal{UserID: userID}, `{"name":"Printer Paper","quantity":5}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for insufficient stock, got %d", rec.Code)
		}
	})

	t.Run("success attributes actor", func(t *testing.T) {
		stub := &stubInventoryService{
			mutationResult: &inventory.MutationResult{Item: models.InventoryItem{ID: itemID, Quantity: 3}},
		}
		rec := post(stub, &pkgauth.Principal{UserID: userID}, `{"item_id":"`+itemID.String()+`","quantity":2,"note":"sprint supplies"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.consumed == nil {
			t.Fatalf("expected ConsumeStock to be invoked")
		}
		if stub.consumed.ActorID == nil || *stub.consumed.ActorID != userID {
			t.Fatalf("expected actor %s, got %v", userID, stub.consumed.ActorID)
		}
		if stub.consumed.Quantity != 2 {
			t.Fatalf("expected quantity 2, got %d", stub.consumed.Quantity)
		}
	})

	t.Run("service principal has no actor", func(t *testing.T) {
		stub := &stubInventoryService{
			mutationResult: &inventory.MutationResult{Item: models.InventoryItem{ID: itemID}},
		}
		rec := post(stub, &pkgauth.Principal{ServiceAccount: true}, `{"name":"Printer Paper","quantity":1}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.consumed == nil || stub.consumed.ActorID != nil {
			t.Fatalf("expected nil actor for service principal, got %+v", stub.consumed)
		}
	})
}

func TestItemGet(t *testing.T) {
	logg := testLogger()
	itemID := uuid.New()

	get := func(stub *stubInventoryService, rawID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/items/"+rawID, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("itemId", rawID)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		ItemGet(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("invalid id", func(t *testing.T) {
		rec := get(&stubInventoryService{}, "not-a-uuid")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		stub := &stubInventoryService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "item not found")}
		rec := get(stub, itemID.String())
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubInventoryService{item: &models.InventoryItem{ID: itemID, Name: "Printer Paper", Quantity: 40}}
		rec := get(stub, itemID.String())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var envelope struct {
			Data models.InventoryItem `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if envelope.Data.Name != "Printer Paper" {
			t.Fatalf("expected item in envelope, got %+v", envelope.Data)
		}
	})
}

func TestInventoryStats(t *testing.T) {
	logg := testLogger()

	stub := &stubInventoryService{stats: &inventory.Stats{TotalItems: 12, LowStock: 2, OutOfStock: 1, TotalQuantity: 180, CheckedOut: 4}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/items/stats", nil)
	rec := httptest.NewRecorder()
	InventoryStats(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data inventory.Stats `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if envelope.Data.LowStock != 2 || envelope.Data.CheckedOut != 4 {
		t.Fatalf("unexpected stats payload: %+v", envelope.Data)
	}
}

type stubInventoryService struct {
	item           *models.InventoryItem
	getErr         error
	mutationResult *inventory.MutationResult
	consumeErr     error
	consumed       *inventory.StockMutationInput
	stats          *inventory.Stats
}

func (s *stubInventoryService) CreateItem(ctx context.Context, input inventory.CreateItemInput) (*models.InventoryItem, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.item, nil
}

func (s *stubInventoryService) GetItemByName(ctx context.Context, name string) (*models.InventoryItem, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) ListItems(ctx context.Context, query inventory.ListQuery) ([]models.InventoryItem, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) UpdateItem(ctx context.Context, id uuid.UUID, input inventory.UpdateItemInput) (*models.InventoryItem, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (s *stubInventoryService) ConsumeStock(ctx context.Context, input inventory.StockMutationInput) (*inventory.MutationResult, error) {
	s.consumed = &input
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	return s.mutationResult, nil
}

func (s *stubInventoryService) RestockStock(ctx context.Context, input inventory.StockMutationInput) (*inventory.MutationResult, error) {
	s.consumed = &input
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	return s.mutationResult, nil
}

func (s *stubInventoryService) RestockStockTx(ctx context.Context, tx *gorm.DB, input inventory.StockMutationInput) (*inventory.MutationResult, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) ListUsage(ctx context.Context, query inventory.UsageListQuery) ([]models.InventoryUsage, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) CorrectUsage(ctx context.Context, usageID uuid.UUID, input inventory.CorrectUsageInput) (*models.InventoryUsage, error) {
	panic("unimplemented")
}

func (s *stubInventoryService) Stats(ctx context.Context) (*inventory.Stats, error) {
	return s.stats, nil
}
