package api

import (
	"fmt"
	"net/http"
	"time"

	"solar-estimate/decision/document"
	"solar-estimate/decision/estimation"
	"solar-estimate/decision/geo"
)

// EstimateRequest is the API request for a direct estimate. Exactly one
// sizing source is used: solar potential, then roof area, then usage.
type EstimateRequest struct {
	RoofAreaSqFt    *float64            `json:"roof_area_sqft,omitempty"`
	MonthlyUsageKWh *float64            `json:"monthly_usage_kwh,omitempty"`
	SolarPotential  *geo.SolarPotential `json:"solar_potential,omitempty"`

	CostPerWatt       *float64                 `json:"cost_per_watt,omitempty"`
	FinancingRatePct  *float64                 `json:"financing_rate_annual_pct,omitempty"`
	LoanTermYears     *int                     `json:"loan_term_years,omitempty"`
	TaxCreditFraction *float64                 `json:"tax_credit_fraction,omitempty"`
	Financing         estimation.FinancingMode `json:"financing,omitempty"`
}

// EstimateResponse carries the rounded summary and the unrounded result
type EstimateResponse struct {
	Summary estimation.Summary `json:"summary"`
	Result  *estimation.Result `json:"result"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !s.decode(w, r, &req) {
		return
	}

	strategy, err := estimation.SelectSizing(req.RoofAreaSqFt, req.MonthlyUsageKWh, req.SolarPotential)
	if err != nil {
		s.jsonError(w, err)
		return
	}
	a := s.engine.Assumptions()
	res, err := estimation.Estimate(estimation.Input{
		Sizing:            strategy,
		CostPerWatt:       req.CostPerWatt,
		FinancingRatePct:  req.FinancingRatePct,
		LoanTermYears:     req.LoanTermYears,
		TaxCreditFraction: req.TaxCreditFraction,
		Financing:         req.Financing,
		Assumptions:       &a,
	})
	if err != nil {
		s.jsonError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, EstimateResponse{Summary: res.Summary(), Result: res})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req estimation.QuoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	quote, err := s.engine.Quote(r.Context(), req)
	if err != nil {
		s.jsonError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, quote)
}

func (s *Server) handleQuoteDocument(w http.ResponseWriter, r *http.Request) {
	renderer, err := document.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.jsonError(w, err)
		return
	}

	var req estimation.QuoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	quote, err := s.engine.Quote(r.Context(), req)
	if err != nil {
		s.jsonError(w, err)
		return
	}

	out, err := renderer.Render(QuoteDocument(quote, s.installer))
	if err != nil {
		s.jsonError(w, fmt.Errorf("failed to render quote: %w", err))
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="solar-quote-%s%s"`, quote.ID, renderer.Extension()))
	w.Header().Set("X-Quote-ID", quote.ID.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// QuoteDocument builds the renderable document for a quote.
func QuoteDocument(q *estimation.Quote, installer document.Installer) document.QuoteDocument {
	address := q.FormattedAddress
	if address == "" {
		address = q.Address
	}
	generated := q.EstimatedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	return document.QuoteDocument{
		QuoteID:     q.ID,
		Address:     address,
		Summary:     q.Summary,
		Installer:   installer,
		GeneratedAt: generated,
		Warnings:    q.Warnings,
	}
}

// OffsetRequest asks how many panels cover a monthly target
type OffsetRequest struct {
	TargetMonthlyKWh    float64  `json:"target_kwh_month"`
	DailySunlightHours  float64  `json:"daily_sunlight_hours"`
	PanelOutputFraction *float64 `json:"panel_output_fraction,omitempty"`
}

func (s *Server) handleOffset(w http.ResponseWriter, r *http.Request) {
	var req OffsetRequest
	if !s.decode(w, r, &req) {
		return
	}
	a := s.engine.Assumptions()
	res, err := estimation.NeededPanels(estimation.OffsetInput{
		TargetMonthlyKWh:    req.TargetMonthlyKWh,
		DailySunlightHours:  req.DailySunlightHours,
		PanelOutputFraction: req.PanelOutputFraction,
		Assumptions:         &a,
	})
	if err != nil {
		s.jsonError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// SnapshotResponse is a benchmark snapshot listing entry
type SnapshotResponse struct {
	ID        string `json:"id"`
	Region    string `json:"region"`
	Alias     string `json:"alias"`
	Source    string `json:"source"`
	Hash      string `json:"hash"`
	IsActive  bool   `json:"is_active"`
	FetchedAt string `json:"fetched_at"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, errorBody{Error: "benchmark store not configured"})
		return
	}

	snapshots, err := s.store.ListSnapshots(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		s.jsonError(w, fmt.Errorf("failed to list snapshots: %w", err))
		return
	}

	resp := make([]SnapshotResponse, len(snapshots))
	for i, snap := range snapshots {
		hash := snap.Hash
		if len(hash) > 16 {
			hash = hash[:16] + "..."
		}
		resp[i] = SnapshotResponse{
			ID:        snap.ID.String(),
			Region:    snap.Region,
			Alias:     snap.Alias,
			Source:    snap.Source,
			Hash:      hash,
			IsActive:  snap.IsActive,
			FetchedAt: snap.FetchedAt.Format(time.RFC3339),
			CreatedAt: snap.CreatedAt.Format(time.RFC3339),
		}
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
