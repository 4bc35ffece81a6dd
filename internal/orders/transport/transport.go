// Package transport defines the request and response DTOs for the orders module.
package transport

import (
	"time"

	"labportal_backend/internal/orders/repository"

	"github.com/google/uuid"
)

// SetAiReviewModeRequest toggles the per-order AI review gate.
type SetAiReviewModeRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// OrderResponse is the canonical JSON representation of a test order.
type OrderResponse struct {
	ID                uuid.UUID `json:"id"`
	PatientName       string    `json:"patientName"`
	PatientGender     string    `json:"patientGender,omitempty"`
	TestType          string    `json:"testType"`
	Status            string    `json:"status"`
	IsAiReviewEnabled bool      `json:"isAiReviewEnabled"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ResultResponse is the canonical JSON representation of a test result.
type ResultResponse struct {
	ID                uuid.UUID  `json:"id"`
	TestOrderID       uuid.UUID  `json:"testOrderId"`
	TestCode          string     `json:"testCode"`
	Parameter         string     `json:"parameter"`
	ValueNumeric      *float64   `json:"valueNumeric,omitempty"`
	ValueText         *string    `json:"valueText,omitempty"`
	Unit              string     `json:"unit,omitempty"`
	ReferenceRange    string     `json:"referenceRange,omitempty"`
	Flag              string     `json:"flag,omitempty"`
	ResultStatus      string     `json:"resultStatus"`
	ReviewedByAI      bool       `json:"reviewedByAi"`
	AiReviewedDate    *time.Time `json:"aiReviewedDate,omitempty"`
	IsConfirmed       bool       `json:"isConfirmed"`
	ConfirmedByUserID *uuid.UUID `json:"confirmedByUserId,omitempty"`
	ConfirmedDate     *time.Time `json:"confirmedDate,omitempty"`
	PerformedDate     time.Time  `json:"performedDate"`
}

// ToOrderResponse maps a repository order to its response form.
func ToOrderResponse(order repository.TestOrder) OrderResponse {
	return OrderResponse{
		ID:                order.ID,
		PatientName:       order.PatientName,
		PatientGender:     order.PatientGender,
		TestType:          order.TestType,
		Status:            string(order.Status),
		IsAiReviewEnabled: order.IsAiReviewEnabled,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

// ToResultResponses maps repository results to their response form.
func ToResultResponses(results []repository.TestResult) []ResultResponse {
	out := make([]ResultResponse, 0, len(results))
	for _, result := range results {
		out = append(out, ResultResponse{
			ID:                result.ID,
			TestOrderID:       result.TestOrderID,
			TestCode:          result.TestCode,
			Parameter:         result.Parameter,
			ValueNumeric:      result.ValueNumeric,
			ValueText:         result.ValueText,
			Unit:              result.Unit,
			ReferenceRange:    result.ReferenceRange,
			Flag:              result.Flag,
			ResultStatus:      result.ResultStatus,
			ReviewedByAI:      result.ReviewedByAI,
			AiReviewedDate:    result.AiReviewedDate,
			IsConfirmed:       result.IsConfirmed,
			ConfirmedByUserID: result.ConfirmedByUserID,
			ConfirmedDate:     result.ConfirmedDate,
			PerformedDate:     result.PerformedDate,
		})
	}
	return out
}
