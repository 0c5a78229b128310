package types

import (
	"time"
)

// Env describes the call being executed: who sends it, when, and what funds are attached.
type Env struct {
	Sender    string
	BlockTime time.Time
	Funds     Coins
}

// Status is the operating status of a ledger.
type Status string

const (
	StatusActive  Status = "active"
	StatusStopped Status = "stopped"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusStopped
}

func (s Status) String() string {
	return string(s)
}
