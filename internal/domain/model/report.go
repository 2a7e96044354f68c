package model

import (
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
)

const (
	ReportStatusOpen      = "open"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

type Report struct {
	ID               int64              `json:"id"`
	ReporterUserID   int64              `json:"reporter_user_id"`
	ReportedUserID   int64              `json:"reported_user_id"`
	Reason           enums.ReportReason `json:"reason"`
	Details          string             `json:"details,omitempty"`
	Status           string             `json:"status"`
	Resolution       string             `json:"resolution,omitempty"`
	ResolvedByUserID *int64             `json:"resolved_by_user_id,omitempty"`
	ResolvedAt       *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

type Block struct {
	BlockerUserID int64     `json:"blocker_user_id"`
	BlockedUserID int64     `json:"blocked_user_id"`
	CreatedAt     time.Time `json:"created_at"`
}
