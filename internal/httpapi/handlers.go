package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/sales"
	"warungpos/backend/internal/service"
	"warungpos/backend/internal/syncer"
)

func (a *API) handleAdminSwitch(w http.ResponseWriter, r *http.Request) {
	if !a.pinLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many admin switch attempts"))
		return
	}

	var req domain.AdminSwitchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !engine.VerifyAdminSwitch(req.Password) {
		writeError(w, http.StatusUnauthorized, errors.New("invalid admin switch password"))
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	resp, err := a.auth.IssueToken(actor.Username, domain.RoleAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	role := service.RoleFromContext(r.Context())
	writeJSON(w, http.StatusOK, service.ViewFor(role, engine.Snapshot()))
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	role := service.RoleFromContext(r.Context())
	list := engine.Products()
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		list = engine.SearchProducts(q)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": service.ProductViewsFor(role, list),
	})
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	role := service.RoleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": engine.Settings().LowStockThreshold,
		"items":     service.ProductViewsFor(role, engine.LowStockItems()),
	})
}

func (a *API) handleExpiring(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	days := parsePositiveLimit(r.URL.Query().Get("days"), 30, 365)
	role := service.RoleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"items": service.ProductViewsFor(role, engine.ExpiringProducts(days)),
	})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var input domain.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	product, result, err := engine.AddProductInput(r.Context(), input)
	if err != nil {
		if !result.IsValid && len(result.Errors) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "product form has errors",
				"errors": result.Errors,
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, service.ProductViewFor(service.RoleFromContext(r.Context()), product))
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	product, err := engine.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.ProductViewFor(service.RoleFromContext(r.Context()), product))
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := engine.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	role := service.RoleFromContext(r.Context())
	list := engine.Sales()
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), len(list), 500)
	if limit < len(list) {
		list = list[:limit]
	}
	views := make([]service.SaleView, 0, len(list))
	for _, sale := range list {
		views = append(views, service.SaleViewFor(role, sale))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (a *API) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sale, err := engine.RecordSale(r.Context(), domain.SaleRequest{
		ProductID:     req.ProductID,
		Quantity:      sales.ParseQuantity(string(req.Quantity)),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, service.SaleViewFor(service.RoleFromContext(r.Context()), sale))
}

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	role := service.RoleFromContext(r.Context())
	list := engine.Transactions()
	views := make([]service.ReceiptView, 0, len(list))
	for _, receipt := range list {
		views = append(views, service.ReceiptViewFor(role, receipt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (a *API) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sale, err := engine.RecordTransaction(r.Context(), req.Items, req.PaymentMethod, req.Receipt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	role := service.RoleFromContext(r.Context())
	if receipt, ok := sale.ReceiptView(); ok {
		writeJSON(w, http.StatusCreated, service.ReceiptViewFor(role, receipt))
		return
	}
	writeJSON(w, http.StatusCreated, service.SaleViewFor(role, sale))
}

func (a *API) handleVoid(w http.ResponseWriter, r *http.Request) {
	var req domain.VoidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	result, err := engine.VoidTransaction(r.Context(), chi.URLParam(r, "id"), req.Reason)
	writeVoidResult(w, r, result, err)
}

func (a *API) handleVoidLast(w http.ResponseWriter, r *http.Request) {
	var req domain.VoidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	result, err := engine.VoidLastTransaction(r.Context(), req.Reason)
	writeVoidResult(w, r, result, err)
}

func writeVoidResult(w http.ResponseWriter, r *http.Request, result service.VoidResult, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	switch result.Status {
	case service.VoidNotFound:
		status = http.StatusNotFound
	case service.VoidReasonRequired:
		status = http.StatusUnprocessableEntity
	}
	body := map[string]any{"status": result.Status}
	if result.Sale != nil {
		body["sale"] = service.SaleViewFor(service.RoleFromContext(r.Context()), *result.Sale)
	}
	writeJSON(w, status, body)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.SettingsViewFor(engine.Settings()))
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	settings, err := engine.UpdateSettings(r.Context(), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.SettingsViewFor(settings))
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	report, err := engine.Report(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=\"daily-report-"+report.Date+".csv\"")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(dailyReportToCSV(report)))
	case "pdf":
		// Printable HTML; the browser's print dialog produces the PDF.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(dailyReportToPrintableHTML(report)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (a *API) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	storeID := a.storeID(r)
	if err := service.ValidateStoreID(storeID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.sync.Status(storeID))
}

func (a *API) handleSyncRetry(w http.ResponseWriter, r *http.Request) {
	storeID := a.storeID(r)
	if err := service.ValidateStoreID(storeID); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := a.sync.Retry(r.Context(), storeID); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, syncer.ErrNothingToSync) {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  "cloud sync failed",
			"status": a.sync.Status(storeID),
		})
		return
	}
	writeJSON(w, http.StatusOK, a.sync.Status(storeID))
}

func (a *API) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	engine, err := a.engineFor(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	at, err := engine.PullFromCloud(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body := map[string]any{"store_id": engine.StoreID()}
	if at != nil {
		body["cloud_timestamp"] = at.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleStoreSwitch(w http.ResponseWriter, r *http.Request) {
	to := chi.URLParam(r, "id")
	engine, err := a.stores.Switch(r.Context(), a.storeID(r), to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	role := service.RoleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"store_id": engine.StoreID(),
		"snapshot": service.ViewFor(role, engine.Snapshot()),
	})
}
