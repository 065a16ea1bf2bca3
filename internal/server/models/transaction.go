package models

import "time"

// Transaction is an immutable record of one value movement, stored in the
// log of OwnerID.
type Transaction struct {
	ID        string
	OwnerID   string
	Sender    string
	Receiver  string
	Value     int64
	Timestamp time.Time
}
