package contracts

import (
	"fmt"

	"github.com/gaze-network/ido-ledger/core/types"
	"github.com/gaze-network/uint128"
)

// Msg is an effect on an external collaborator, emitted by a call and executed by a Dispatcher.
type Msg interface {
	fmt.Stringer
	msg()
}

// BankSend moves native coins between accounts.
type BankSend struct {
	From  string
	To    string
	Coins types.Coins
}

// Delegate stakes native coins of Delegator to Validator.
type Delegate struct {
	Delegator string
	Validator string
	Amount    types.Coin
}

// Undelegate starts unbonding native coins of Delegator from Validator.
type Undelegate struct {
	Delegator string
	Validator string
	Amount    types.Coin
}

// Redelegate moves a delegation between validators.
type Redelegate struct {
	Delegator    string
	SrcValidator string
	DstValidator string
	Amount       types.Coin
}

// WithdrawRewards pays the accumulated rewards of a delegation to Recipient.
type WithdrawRewards struct {
	Delegator string
	Validator string
	Recipient string
}

// TokenTransfer moves fungible tokens owned by From.
type TokenTransfer struct {
	Contract  string
	From      string
	Recipient string
	Amount    uint128.Uint128
}

// TokenTransferFrom moves fungible tokens of Owner, spending the allowance granted to Spender.
type TokenTransferFrom struct {
	Contract  string
	Spender   string
	Owner     string
	Recipient string
	Amount    uint128.Uint128
}

func (BankSend) msg()          {}
func (Delegate) msg()          {}
func (Undelegate) msg()        {}
func (Redelegate) msg()        {}
func (WithdrawRewards) msg()   {}
func (TokenTransfer) msg()     {}
func (TokenTransferFrom) msg() {}

func (m BankSend) String() string {
	return fmt.Sprintf("bank_send %s -> %s: %v", m.From, m.To, m.Coins)
}

func (m Delegate) String() string {
	return fmt.Sprintf("delegate %s -> %s: %s", m.Delegator, m.Validator, m.Amount)
}

func (m Undelegate) String() string {
	return fmt.Sprintf("undelegate %s <- %s: %s", m.Delegator, m.Validator, m.Amount)
}

func (m Redelegate) String() string {
	return fmt.Sprintf("redelegate %s: %s -> %s: %s", m.Delegator, m.SrcValidator, m.DstValidator, m.Amount)
}

func (m WithdrawRewards) String() string {
	return fmt.Sprintf("withdraw_rewards %s@%s -> %s", m.Delegator, m.Validator, m.Recipient)
}

func (m TokenTransfer) String() string {
	return fmt.Sprintf("transfer %s %s -> %s: %s", m.Contract, m.From, m.Recipient, m.Amount)
}

func (m TokenTransferFrom) String() string {
	return fmt.Sprintf("transfer_from %s %s -> %s by %s: %s", m.Contract, m.Owner, m.Recipient, m.Spender, m.Amount)
}
