package handlers

import (
	"net/http"
	"time"

	"descriptly/internal/domain"
)

// UsageSummary reports the merchant's consumption against the plan quota for
// the current calendar month.
func (a *App) UsageSummary(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	used, err := a.Usage.TotalSince(r.Context(), merchant.ID, monthStart(time.Now().UTC()))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	caps := domain.Capabilities(merchant.Plan)
	remaining := caps.MonthlyGenerations - used
	if remaining < 0 {
		remaining = 0
	}
	a.json(w, http.StatusOK, map[string]any{
		"plan":      merchant.Plan,
		"used":      used,
		"quota":     caps.MonthlyGenerations,
		"remaining": remaining,
	})
}
