package enums

import "strings"

type ReportReason string

const (
	ReportReasonSpam          ReportReason = "spam"
	ReportReasonFake          ReportReason = "fake"
	ReportReasonAbusive       ReportReason = "abusive"
	ReportReasonInappropriate ReportReason = "inappropriate"
	ReportReasonOther         ReportReason = "other"
)

func ParseReportReason(raw string) (ReportReason, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch ReportReason(value) {
	case ReportReasonSpam, ReportReasonFake, ReportReasonAbusive, ReportReasonInappropriate, ReportReasonOther:
		return ReportReason(value), true
	default:
		return "", false
	}
}
