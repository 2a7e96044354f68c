package dto

import "github.com/encontrocomfe/backend/internal/domain/model"

type ResolveReportRequest struct {
	Resolution  string `json:"resolution"`
	Dismiss     bool   `json:"dismiss,omitempty"`
	SuspendUser bool   `json:"suspend_user,omitempty"`
}

type SuspendRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ReportsResponse struct {
	Reports []model.Report `json:"reports"`
}
