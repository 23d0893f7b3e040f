package settlement

// BlockCode identifies a category of validation failure. The set is closed;
// every foreseeable invalid state maps to one of these.
type BlockCode string

const (
	BlockMissingSetup          BlockCode = "MISSING_SETUP"
	BlockMissingAccountMapping BlockCode = "MISSING_ACCOUNT_MAPPING"
	BlockMissingSkuMapping     BlockCode = "MISSING_SKU_MAPPING"
	BlockMissingBrandSubAcct   BlockCode = "MISSING_BRAND_SUBACCOUNT"
	BlockAlreadyProcessed      BlockCode = "ALREADY_PROCESSED"
	BlockInvoiceConflict       BlockCode = "INVOICE_CONFLICT"
	BlockOrderAlreadyProcessed BlockCode = "ORDER_ALREADY_PROCESSED"
	BlockRefundUnmatched       BlockCode = "REFUND_UNMATCHED"
	BlockRefundPartial         BlockCode = "REFUND_PARTIAL"
	BlockMissingCostBasis      BlockCode = "MISSING_COST_BASIS"
	BlockBillsFetchError       BlockCode = "BILLS_FETCH_ERROR"
	BlockBillsParseError       BlockCode = "BILLS_PARSE_ERROR"
	BlockPnlAllocationError    BlockCode = "PNL_ALLOCATION_ERROR"
)

// Block is a typed, non-fatal validation failure. Any block on a preview
// makes it not postable; the preview itself still computes fully so the
// diagnostics are complete.
type Block struct {
	Code    BlockCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewBlock creates a block without details.
func NewBlock(code BlockCode, message string) Block {
	return Block{Code: code, Message: message}
}

// NewBlockWithDetails creates a block carrying a structured payload.
func NewBlockWithDetails(code BlockCode, message string, details map[string]any) Block {
	return Block{Code: code, Message: message, Details: details}
}

// BlockList accumulates blocks across all processing stages. Checks are
// never short-circuited: every stage appends what it finds.
type BlockList []Block

// Add appends one or more blocks.
func (l *BlockList) Add(blocks ...Block) {
	*l = append(*l, blocks...)
}

// Merge appends another list's blocks.
func (l *BlockList) Merge(other BlockList) {
	*l = append(*l, other...)
}

// Empty reports whether the preview is postable.
func (l BlockList) Empty() bool {
	return len(l) == 0
}

// HasCode reports whether any accumulated block carries the given code.
func (l BlockList) HasCode(code BlockCode) bool {
	for _, b := range l {
		if b.Code == code {
			return true
		}
	}
	return false
}
