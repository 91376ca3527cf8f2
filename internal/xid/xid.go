// Package xid generates collision-resistant identifiers: a prefix, the
// creation timestamp, and random hex. Sortable by creation time within a
// prefix.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

func NewSale() string { return New("sale") }

func NewPayment() string { return New("pay") }
