// Package core defines the ledger entity model: accounts, categories,
// transactions and recurring transactions, together with the recurrence
// date-generation rules.
package core

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"ledger/internal/money"
)

// CategoryType says whether transactions under a category add to or
// subtract from an account balance.
type CategoryType int

const (
	Income CategoryType = iota
	Expense
)

func (t CategoryType) String() string {
	switch t {
	case Income:
		return "income"
	case Expense:
		return "expense"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrNotStored           = errors.New("cannot remove an entity that was not stored")
	ErrAccountNotStored    = errors.New("an account must be stored before a transaction can reference it")
	ErrCategoryNotStored   = errors.New("a category must be stored before a transaction can reference it")
	ErrNoCadence           = errors.New("a recurrence needs exactly one cadence selector")
	ErrAmbiguousRecurrence = errors.New("a recurrence cannot set both an end date and an occurrence count")
	ErrInvalidInterval     = errors.New("a recurrence interval must be at least one day")
)

type (
	// Account holds a maintained balance. Amount always equals
	// InitialAmount plus the signed sum of the account's transactions.
	Account struct {
		ID            uuid.UUID
		Name          string
		Memo          string
		Color         string
		InitialAmount money.Amount
		Amount        money.Amount
	}

	// Category labels transactions as income or expense. Categories form
	// a tree through Parent; a child's type is independent of its
	// parent's type.
	Category struct {
		ID     uuid.UUID
		Parent *Category
		Name   string
		Type   CategoryType
		Color  string
	}

	// Transaction moves money in or out of an account. Amount is the
	// magnitude supplied by the caller; the stored sign is derived from
	// the category type, see SignedAmount.
	Transaction struct {
		ID          uuid.UUID
		Account     *Account
		Category    *Category
		Amount      money.Amount
		Date        Date
		Contents    string
		Memo        string
		Recurrent   bool
		Attachments []uuid.UUID
	}

	// RecurringTransaction is a template transaction plus the recurrence
	// rule that materializes concrete transactions over time.
	RecurringTransaction struct {
		ID          uuid.UUID
		Transaction *Transaction
		Recurrence  *Recurrence
	}

	// Attachment is an opaque blob linked to transactions, a receipt
	// scan for instance.
	Attachment struct {
		ID   uuid.UUID
		Name string
		Data []byte
	}
)

// Stored reports whether the entity has been persisted.
func (a *Account) Stored() bool { return a.ID != uuid.Nil }

func (c *Category) Stored() bool { return c.ID != uuid.Nil }

func (t *Transaction) Stored() bool { return t.ID != uuid.Nil }

func (r *RecurringTransaction) Stored() bool { return r.ID != uuid.Nil }

func (a *Attachment) Stored() bool { return a.ID != uuid.Nil }

// Reset returns the entity to its transient state after a removal.
func (a *Account) Reset() { a.ID = uuid.Nil }

func (c *Category) Reset() { c.ID = uuid.Nil }

func (t *Transaction) Reset() { t.ID = uuid.Nil }

func (r *RecurringTransaction) Reset() { r.ID = uuid.Nil }

func (a *Attachment) Reset() { a.ID = uuid.Nil }

// SignedAmount is the amount as stored: negated when the category is an
// expense and the supplied magnitude is positive.
func (t *Transaction) SignedAmount() money.Amount {
	if t.Category != nil && t.Category.Type == Expense && t.Amount.IsPositive() {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Validate checks the references a transaction needs before it can be
// persisted. The account and category rows must already exist.
func (t *Transaction) Validate() error {
	if t.Account == nil || !t.Account.Stored() {
		return ErrAccountNotStored
	}
	if t.Category == nil || !t.Category.Stored() {
		return ErrCategoryNotStored
	}
	return t.Date.Validate()
}

func (r *RecurringTransaction) Validate() error {
	if r.Transaction == nil {
		return errors.New("recurring transaction needs a template transaction")
	}
	if err := r.Transaction.Validate(); err != nil {
		return err
	}
	if r.Recurrence == nil {
		return ErrNoCadence
	}
	return r.Recurrence.Validate()
}
