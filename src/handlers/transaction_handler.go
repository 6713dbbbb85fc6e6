package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fintrack-server/src/db"
	"fintrack-server/src/finance"
	"fintrack-server/src/middleware"
	"fintrack-server/src/models"
	"fintrack-server/src/util"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func CreateTransaction(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.UserFromContext(r.Context())

		var req models.CreateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode transaction request body: %v", err)
			util.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}

		tx, err := d.Finance.RecordTransaction(r.Context(), user, req)
		if errors.Is(err, finance.ErrInvalidType) {
			util.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to record transaction for user %s: %v", user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		log.Printf("INFO: Transaction recorded - User: %s, ID: %s", user.ID, tx.ID)
		util.WriteJSON(w, http.StatusCreated, tx)
	}
}

// ListTransactions returns the filtered ledger, its totals, and the stored
// summary of the whole ledger.
func ListTransactions(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.UserFromContext(r.Context())

		overview, err := d.Finance.Overview(r.Context(), user, finance.FiltersFromValues(r.URL.Query()))
		if err != nil {
			log.Printf("ERROR: Failed to list transactions for user %s: %v", user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		util.WriteJSON(w, http.StatusOK, overview)
	}
}

func DeleteTransaction(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.UserFromContext(r.Context())
		transactionID := chi.URLParam(r, "transaction_id")

		err := d.Finance.DeleteTransaction(r.Context(), user.ID, transactionID)
		if errors.Is(err, db.ErrNotFound) {
			util.WriteError(w, http.StatusNotFound, "transaction not found")
			return
		}
		if err != nil {
			log.Printf("ERROR: Failed to delete transaction %s for user %s: %v", transactionID, user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		log.Printf("INFO: Transaction deleted - User: %s, ID: %s", user.ID, transactionID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetSummary(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.UserFromContext(r.Context())

		summary, err := d.Finance.Summary(r.Context(), user.ID)
		if err != nil {
			log.Printf("ERROR: Failed to read summary for user %s: %v", user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}
		util.WriteJSON(w, http.StatusOK, summary)
	}
}

// GetAnalytics feeds the expense chart: category labels with the magnitude
// of each category's spending, largest first.
func GetAnalytics(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.UserFromContext(r.Context())

		totals, err := d.Finance.ExpensesByCategory(r.Context(), user.ID)
		if err != nil {
			log.Printf("ERROR: Failed to aggregate expenses for user %s: %v", user.ID, err)
			util.WriteError(w, http.StatusInternalServerError, "internal error")
			return
		}

		labels := make([]string, len(totals))
		data := make([]decimal.Decimal, len(totals))
		for i, c := range totals {
			labels[i] = c.Category
			data[i] = c.Magnitude()
		}
		util.WriteJSON(w, http.StatusOK, map[string]any{
			"labels":     labels,
			"data":       data,
			"categories": totals,
		})
	}
}
