package dto

type ReportRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
	Block   bool   `json:"block,omitempty"`
}

type ReportResponse struct {
	ReportID int64 `json:"report_id"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
