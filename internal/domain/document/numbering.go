package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Id prefixes per record kind
const (
	PrefixInvoice  = "INV"
	PrefixLPO      = "LPO"
	PrefixProposal = "PRP"
	PrefixReceipt  = "RCT"
	PrefixExpense  = "EXP"
)

// PrefixFor returns the id prefix of a commercial document type
func PrefixFor(t DocumentType) string {
	if t == TypeLPO {
		return PrefixLPO
	}
	return PrefixInvoice
}

// HighestSequence returns the largest number used with prefix, 0 if none.
// Ids with other prefixes or non-numeric suffixes are ignored.
func HighestSequence(prefix string, existing []string) int {
	highest := 0
	head := prefix + "-"
	for _, id := range existing {
		if !strings.HasPrefix(id, head) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, head))
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

// FormatID renders a sequence number with at least four digits
func FormatID(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}
