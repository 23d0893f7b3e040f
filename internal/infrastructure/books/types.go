package books

// Wire types for the accounting system API. Dates are ISO days; amounts
// are integer cents end to end.

type journalEntryDTO struct {
	ID          string         `json:"id"`
	DocNumber   string         `json:"doc_number"`
	TxnDate     string         `json:"txn_date"`
	PrivateNote string         `json:"private_note,omitempty"`
	Lines       []journalLineDTO `json:"lines,omitempty"`
}

type journalLineDTO struct {
	AccountID   string `json:"account_id"`
	PostingType string `json:"posting_type"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
}

type accountDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	Type     string `json:"type"`
	Active   bool   `json:"active"`
}

type accountListDTO struct {
	Accounts []accountDTO `json:"accounts"`
}

type billDTO struct {
	ID      string        `json:"id"`
	TxnDate string        `json:"txn_date"`
	Lines   []billLineDTO `json:"lines"`
}

type billLineDTO struct {
	AccountName string `json:"account_name"`
	SKU         string `json:"sku,omitempty"`
	Units       int64  `json:"units,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
}

type billListDTO struct {
	Bills []billDTO `json:"bills"`
}

type createEntryResponseDTO struct {
	ID string `json:"id"`
}

type errorResponseDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
