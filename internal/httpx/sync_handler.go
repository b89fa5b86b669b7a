package httpx

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/ariefcatur/go-shop-sync/internal/syncer"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"net/http"
)

type TenantResolver interface {
	Resolve(ctx context.Context, identifier string) (shop.Tenant, bool, error)
}

type Syncer interface {
	SyncKind(ctx context.Context, t shop.Tenant, kind shop.Kind) (int, int, error)
	SyncTenant(ctx context.Context, t shop.Tenant) (syncer.Result, error)
	SyncAll(ctx context.Context, policy syncer.Policy) ([]syncer.Result, error)
	Snapshot(ctx context.Context, t shop.Tenant) (syncer.Snapshot, error)
}

type StatusReader interface {
	Load(ctx context.Context, tenantID int64) (json.RawMessage, bool, error)
}

type SyncHandler struct {
	Resolver TenantResolver
	Syncer   Syncer
	Status   StatusReader // optional
	Log      *zap.Logger
}

func (h *SyncHandler) Register(r chi.Router) {
	r.Route("/api/shopify", func(r chi.Router) {
		r.Get("/sync-customers/{tenantId}", h.syncKind(shop.KindCustomers))
		r.Get("/sync-orders/{tenantId}", h.syncKind(shop.KindOrders))
		r.Get("/sync-products/{tenantId}", h.syncKind(shop.KindProducts))
		r.Get("/sync-all", h.syncAll)
		r.Get("/sync-all/{tenantId}", h.syncAll)
		r.Get("/summary/{tenantId}", h.summary)
		r.Get("/sync-status/{tenantId}", h.syncStatus)
	})
}

func tenantParam(r *http.Request) string {
	if id := chi.URLParam(r, "tenantId"); id != "" {
		return id
	}
	return r.URL.Query().Get("tenantId")
}

// resolve writes the error response itself and reports whether to continue.
func (h *SyncHandler) resolve(w http.ResponseWriter, r *http.Request) (shop.Tenant, bool) {
	id := tenantParam(r)
	t, ok, err := h.Resolver.Resolve(r.Context(), id)
	if err != nil {
		h.Log.Error("resolve tenant", zap.String("identifier", id), zap.Error(err))
		writeError(w, err)
		return shop.Tenant{}, false
	}
	if !ok {
		h.Log.Info("tenant not found", zap.String("identifier", id))
		writeError(w, shop.ErrTenantNotFound)
		return shop.Tenant{}, false
	}
	return t, true
}

func (h *SyncHandler) syncKind(kind shop.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := h.resolve(w, r)
		if !ok {
			return
		}
		n, _, err := h.Syncer.SyncKind(r.Context(), t, kind)
		if err != nil {
			h.Log.Error("sync failed", zap.Int64("tenant_id", t.ID), zap.String("kind", kind.String()), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "inserted": n})
	}
}

func (h *SyncHandler) syncAll(w http.ResponseWriter, r *http.Request) {
	if tenantParam(r) == "" {
		results, err := h.Syncer.SyncAll(r.Context(), syncer.AbortOnError)
		if err != nil {
			h.Log.Error("sync all failed", zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Synced all tenants", "results": results})
		return
	}

	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	res, err := h.Syncer.SyncTenant(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"tenant": t.ShopDomain,
		"results": map[string]int{
			"customers": res.Customers,
			"products":  res.Products,
			"orders":    res.Orders,
		},
	})
}

func (h *SyncHandler) summary(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	snap, err := h.Syncer.Snapshot(r.Context(), t)
	if err != nil {
		h.Log.Error("summary fetch failed", zap.Int64("tenant_id", t.ID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SyncHandler) syncStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if h.Status == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "sync status cache disabled"})
		return
	}
	raw, found, err := h.Status.Load(r.Context(), t.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync recorded"})
		return
	}
	writeJSON(w, http.StatusOK, raw)
}
