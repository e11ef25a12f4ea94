package audit

// EventName is a verification checkpoint recorded in the audit trail.
type EventName string

const eventPrefix = "IPV_HMRC_KBV_CRI_"

const (
	EventStart               EventName = eventPrefix + "START"
	EventRequestSent         EventName = eventPrefix + "REQUEST_SENT"
	EventResponseReceived    EventName = eventPrefix + "RESPONSE_RECEIVED"
	EventThinFileEncountered EventName = eventPrefix + "THIN_FILE_ENCOUNTERED"
	EventVCIssued            EventName = eventPrefix + "VC_ISSUED"
	EventEnd                 EventName = eventPrefix + "END"
)

// Outcome labels carried in the extensions block.
const (
	OutcomeAuthenticated    = "Authenticated"
	OutcomeNotAuthenticated = "Not Authenticated"
)

// OutcomeFor maps a verification score to its outcome label.
func OutcomeFor(verificationScore int) string {
	if verificationScore > 0 {
		return OutcomeAuthenticated
	}
	return OutcomeNotAuthenticated
}
