package accounting

import "time"

// PostingType is the side of a journal entry line.
type PostingType string

const (
	Debit  PostingType = "DEBIT"
	Credit PostingType = "CREDIT"
)

// Line is one journal entry line. Amounts are always positive; the side is
// carried by PostingType.
type Line struct {
	AccountID   string      `json:"account_id"`
	PostingType PostingType `json:"posting_type"`
	AmountCents int64       `json:"amount_cents"`
	Description string      `json:"description"`
}

// Entry is a journal entry ready for the accounting system. Builders only
// ever append debit/credit pairs of equal amounts, so a built entry
// balances by construction; Balanced exists for tests and invariant checks,
// not as a repair step.
type Entry struct {
	TxnDate     time.Time `json:"txn_date"`
	DocNumber   string    `json:"doc_number"`
	PrivateNote string    `json:"private_note"`
	Lines       []Line    `json:"lines"`
}

// Balanced reports whether debits equal credits.
func (e Entry) Balanced() bool {
	var net int64
	for _, l := range e.Lines {
		if l.PostingType == Debit {
			net += l.AmountCents
		} else {
			net -= l.AmountCents
		}
	}
	return net == 0
}

// Empty reports whether the entry has no lines.
func (e Entry) Empty() bool {
	return len(e.Lines) == 0
}

// addPair appends a balanced debit/credit pair. The sign of net selects
// which account is debited: positive debits debitIfPositive, negative flips
// the pair. Zero nets are ignored.
func (e *Entry) addPair(net int64, debitIfPositive, creditIfPositive, description string) {
	if net == 0 {
		return
	}
	amount := net
	debitAccount, creditAccount := debitIfPositive, creditIfPositive
	if net < 0 {
		amount = -net
		debitAccount, creditAccount = creditIfPositive, debitIfPositive
	}
	e.Lines = append(e.Lines,
		Line{AccountID: debitAccount, PostingType: Debit, AmountCents: amount, Description: description},
		Line{AccountID: creditAccount, PostingType: Credit, AmountCents: amount, Description: description},
	)
}

// JournalEntryRef is the identity of a journal entry in the accounting
// system.
type JournalEntryRef struct {
	ID        string
	DocNumber string
	TxnDate   time.Time
}

// Account is one ledger account fetched from the accounting system.
type Account struct {
	ID       string
	Name     string
	ParentID string
	Type     string
	Active   bool
}
