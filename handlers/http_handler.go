// Package handlers provides HTTP request handlers for the medprices API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	priceStore    interfaces.PriceStore
	dataStore     interfaces.DataStore
	validator     interfaces.QueryValidator
	healthChecker interfaces.HealthChecker
}

var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	priceStore interfaces.PriceStore,
	dataStore interfaces.DataStore,
	validator interfaces.QueryValidator,
	healthChecker interfaces.HealthChecker,
) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		priceStore:    priceStore,
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// CompaniesResponse is the body of GET /companies
type CompaniesResponse struct {
	Companies []string `json:"companies"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if lastUpdated := h.dataStore.GetLastUpdated(); !lastUpdated.IsZero() {
		w.Header().Set("Last-Modified", lastUpdated.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// Companies returns the distinct company names in alphabetical order
func (h *HTTPHandlerImpl) Companies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.priceStore.Companies(r.Context())
	if err != nil {
		logging.Error("Failed to read companies", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to read companies")
		return
	}

	if companies == nil {
		companies = []string{}
	}

	h.RespondWithJSON(w, http.StatusOK, CompaniesResponse{Companies: companies})
}

// Medicines returns the distinct product lines of one company
func (h *HTTPHandlerImpl) Medicines(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")

	if err := h.validator.ValidateCompany(company); err != nil {
		logging.Warn("Unusual user input", "company", company, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	medicines, err := h.priceStore.MedicinesForCompany(r.Context(), company)
	if err != nil {
		logging.Error("Failed to read medicines", "company", company, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to read medicines")
		return
	}

	// Always return 200 with results array (empty if no matches)
	if medicines == nil {
		medicines = []entities.Medicine{}
	}

	h.RespondWithJSON(w, http.StatusOK, medicines)
}

// Group returns the price history of every product sharing substance, form and dose.
// Omitting the dose parameter selects rows without a dose; "dose=" selects an empty one.
func (h *HTTPHandlerImpl) Group(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	substance := query.Get("substance")
	form := query.Get("form")

	var dose *string
	if values, ok := query["dose"]; ok && len(values) > 0 {
		dose = &values[0]
	}

	if err := h.validator.ValidateGroupQuery(substance, form, dose); err != nil {
		logging.Warn("Unusual user input", "substance", substance, "form", form, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	buckets, err := h.priceStore.Group(r.Context(), entities.NewGroupKey(substance, form, dose))
	if err != nil {
		logging.Error("Failed to read group", "substance", substance, "form", form, "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Failed to read group")
		return
	}

	if buckets == nil {
		buckets = []entities.ProductBucket{}
	}

	h.RespondWithJSON(w, http.StatusOK, buckets)
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.dataStore.GetServerStartTime())

	status, details, httpStatus := h.healthChecker.HealthCheck(r.Context())

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}
