package settlement

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sellerledger/backend/internal/domain/shared"
)

// Settlement journal entries carry a structured doc number encoding the
// marketplace and settlement period: SE-<MARKETPLACE>-<from>-<to> with
// ISO dates, e.g. SE-AMAZON_US-2026-07-01-2026-07-14.
var docNumberPattern = regexp.MustCompile(`^SE-([A-Z0-9_]+)-(\d{4}-\d{2}-\d{2})-(\d{4}-\d{2}-\d{2})$`)

// SettlementMeta is the metadata parsed from a settlement doc number.
type SettlementMeta struct {
	Marketplace string
	PeriodFrom  time.Time
	PeriodTo    time.Time
}

// ParseDocNumber parses a settlement doc number. A malformed doc number is
// a hard error: without marketplace and period nothing downstream can run.
func ParseDocNumber(docNumber string) (SettlementMeta, error) {
	m := docNumberPattern.FindStringSubmatch(docNumber)
	if m == nil {
		return SettlementMeta{}, shared.NewDomainError("INVALID_DOC_NUMBER",
			fmt.Sprintf("doc number %q does not match SE-<MARKETPLACE>-<from>-<to>", docNumber))
	}

	from, err := time.Parse("2006-01-02", m[2])
	if err != nil {
		return SettlementMeta{}, shared.NewDomainError("INVALID_DOC_NUMBER",
			fmt.Sprintf("doc number %q has invalid period start: %v", docNumber, err))
	}
	to, err := time.Parse("2006-01-02", m[3])
	if err != nil {
		return SettlementMeta{}, shared.NewDomainError("INVALID_DOC_NUMBER",
			fmt.Sprintf("doc number %q has invalid period end: %v", docNumber, err))
	}
	if to.Before(from) {
		return SettlementMeta{}, shared.NewDomainError("INVALID_DOC_NUMBER",
			fmt.Sprintf("doc number %q period ends before it starts", docNumber))
	}

	return SettlementMeta{Marketplace: m[1], PeriodFrom: from, PeriodTo: to}, nil
}
