package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/metrics"
	"github.com/raterudder/tou/pkg/types"
	"github.com/shopspring/decimal"
)

const maxBillBody = 1 << 20

type billRequest struct {
	Plan             string                     `json:"plan"`
	Date             civil.Date                 `json:"date"`
	Usage            types.Usage                `json:"usage"`
	ContractCapacity map[string]decimal.Decimal `json:"contractCapacity,omitempty"`
	Strict           bool                       `json:"strict"`
}

type billResponse struct {
	Plan string `json:"plan"`
	types.Bill
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBillBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeDomainError(w, r, "bill", fmt.Errorf("%w: invalid request body: %v", types.ErrInvalidQuery, err))
		return
	}
	if req.Plan == "" {
		writeDomainError(w, r, "bill", fmt.Errorf("%w: plan is required", types.ErrInvalidQuery))
		return
	}

	plan, err := s.catalog.Plan(req.Plan)
	if err != nil {
		writeDomainError(w, r, "bill", err)
		return
	}

	bill, err := plan.Bill(req.Usage, types.BillingInputs{
		Date:             req.Date,
		ContractCapacity: req.ContractCapacity,
		Strict:           req.Strict,
	})
	if err != nil {
		writeDomainError(w, r, "bill", err)
		return
	}
	metrics.BillsTotal.WithLabelValues(plan.ID).Inc()
	writeJSON(w, billResponse{Plan: plan.ID, Bill: bill})
}
