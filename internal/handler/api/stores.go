package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/mercato/internal/domain"
	"github.com/dukerupert/mercato/internal/service"
)

type createStoreRequest struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Description  string `json:"description"`
	Currency     string `json:"currency"`
	Country      string `json:"country"`
	AutomaticTax bool   `json:"automatic_tax"`
}

// CreateStore handles POST /api/stores.
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_store"

	var req createStoreRequest
	if err := decodeJSON(r, op, &req); err != nil {
		respondError(w, r, err)
		return
	}

	store, err := h.stores.CreateStore(r.Context(), userID(r), service.CreateStoreParams{
		Name:         req.Name,
		URL:          req.URL,
		Description:  req.Description,
		Currency:     req.Currency,
		Country:      req.Country,
		AutomaticTax: req.AutomaticTax,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, newStoreView(store), nil)
}

// ListStores handles GET /api/stores.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.ListStores(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, mapList(stores, newStoreView), nil)
}

// GetActiveStore handles GET /api/stores/active.
func (h *Handler) GetActiveStore(w http.ResponseWriter, r *http.Request) {
	store, err := h.stores.GetActiveStore(r.Context(), userID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newStoreView(store), nil)
}

// GetStore handles GET /api/stores/{id}.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_store"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	store, err := h.ownedStore(r.Context(), op, storeID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newStoreView(store), nil)
}

// ActivateStore handles POST /api/stores/{id}/activate.
func (h *Handler) ActivateStore(w http.ResponseWriter, r *http.Request) {
	const op = "api.activate_store"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	store, err := h.stores.ActivateStore(r.Context(), userID(r), storeID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, newStoreView(store), nil)
}

// CreateStoreAccount handles POST /api/stores/{id}/account. Repeated calls
// return the same connected account.
func (h *Handler) CreateStoreAccount(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_store_account"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := h.ownedStore(r.Context(), op, storeID); err != nil {
		respondError(w, r, err)
		return
	}
	accountID, err := h.customers.GetOrCreateStoreAccount(r.Context(), storeID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"account_id": accountID}, nil)
}

type accountLinkRequest struct {
	ReturnURL  string `json:"return_url"`
	RefreshURL string `json:"refresh_url"`
}

type accountLinkView struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateAccountLink handles POST /api/stores/{id}/account-link.
func (h *Handler) CreateAccountLink(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_account_link"

	storeID, err := pathUUID(r, "id", op, "store")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req accountLinkRequest
	if err := decodeJSON(r, op, &req); err != nil {
		respondError(w, r, err)
		return
	}
	var verr error
	if req.ReturnURL == "" {
		verr = domain.AddFieldError(verr, "return_url", "is required")
	}
	if req.RefreshURL == "" {
		verr = domain.AddFieldError(verr, "refresh_url", "is required")
	}
	if verr != nil {
		respondError(w, r, verr)
		return
	}
	if _, err := h.ownedStore(r.Context(), op, storeID); err != nil {
		respondError(w, r, err)
		return
	}

	link, err := h.customers.CreateAccountLink(r.Context(), storeID, req.ReturnURL, req.RefreshURL)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, accountLinkView{URL: link.URL, ExpiresAt: link.ExpiresAt}, nil)
}
