package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ProcessingHash computes the content hash of an invoice's scoped audit
// rows. It is a pure function of the normalized, sorted row set: row order
// never changes the hash, any change to a row's identity, quantity or
// amount does. The hash anchors idempotent re-submission detection.
func ProcessingHash(rows []AuditRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%s",
			row.Invoice,
			row.Marketplace,
			row.Date.Format("2006-01-02"),
			row.OrderID,
			NormalizeSKU(row.SKU),
			row.Quantity,
			row.NetAmountCents,
			strings.TrimSpace(row.Description),
		))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
