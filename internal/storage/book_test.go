package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/money"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	book, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return book
}

func seedAccount(t *testing.T, book *Book, name, initial string) *core.Account {
	t.Helper()
	acc := &core.Account{Name: name, InitialAmount: money.MustParse(initial)}
	if err := book.StoreAccount(context.Background(), acc); err != nil {
		t.Fatalf("StoreAccount(%q) error = %v", name, err)
	}
	return acc
}

func seedCategory(t *testing.T, book *Book, name string, typ core.CategoryType) *core.Category {
	t.Helper()
	cat := &core.Category{Name: name, Type: typ}
	if err := book.StoreCategory(context.Background(), cat); err != nil {
		t.Fatalf("StoreCategory(%q) error = %v", name, err)
	}
	return cat
}

func accountBalance(t *testing.T, book *Book, acc *core.Account) money.Amount {
	t.Helper()
	accs, err := book.Accounts(context.Background(), nil)
	if err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	for _, a := range accs {
		if a.ID == acc.ID {
			return a.Amount
		}
	}
	t.Fatalf("account %s not found", acc.ID)
	return money.Zero
}

func TestStoreAccountRoundTrip(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "100.50")
	if !acc.Stored() {
		t.Fatal("expected account to be stored")
	}
	id := acc.ID

	if err := book.StoreAccount(ctx, acc); err != nil {
		t.Fatalf("second StoreAccount() error = %v", err)
	}
	if acc.ID != id {
		t.Fatalf("id changed across stores: %s != %s", acc.ID, id)
	}

	accs, err := book.Accounts(ctx, nil)
	if err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	if len(accs) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accs))
	}
	got := accs[0]
	if got.Name != "Checking" || !got.Amount.Equal(money.MustParse("100.50")) {
		t.Fatalf("unexpected account %+v", got)
	}
}

func TestStoreAccountEmptyName(t *testing.T) {
	book := newTestBook(t)

	err := book.StoreAccount(context.Background(), &core.Account{Name: "   "})
	if err != core.ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if !book.IsError() {
		t.Fatal("expected sticky error after failed store")
	}
	if book.LastError() != core.ErrEmptyName {
		t.Fatalf("LastError() = %v", book.LastError())
	}

	if _, err := book.Accounts(context.Background(), nil); err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	if book.IsError() {
		t.Fatal("expected sticky error cleared by next successful call")
	}
}

func TestTransientGuardsRecordStickyStatus(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	// leave a failure in the sticky status
	if err := book.StoreAccount(ctx, &core.Account{Name: "   "}); err != core.ErrEmptyName {
		t.Fatalf("StoreAccount() error = %v, want ErrEmptyName", err)
	}

	// a guard that fires before storage is touched must replace it
	ghost := &core.Account{Name: "Ghost"}
	if _, err := book.MonthsTotalForAccount(ctx, ghost, 2024); err != core.ErrNotStored {
		t.Fatalf("MonthsTotalForAccount() error = %v, want ErrNotStored", err)
	}
	if book.LastError() != core.ErrNotStored {
		t.Fatalf("LastError() = %v, want ErrNotStored", book.LastError())
	}

	guards := []struct {
		name string
		call func() error
	}{
		{"TransactionsForAccount", func() error {
			_, err := book.TransactionsForAccount(ctx, ghost, nil)
			return err
		}},
		{"TransactionsForCategory", func() error {
			_, err := book.TransactionsForCategory(ctx, &core.Category{Name: "x"}, nil, nil, nil)
			return err
		}},
		{"RecurringTransactionsForCategory", func() error {
			_, err := book.RecurringTransactionsForCategory(ctx, &core.Category{Name: "x"}, nil)
			return err
		}},
		{"GeneratedTransactions", func() error {
			_, err := book.GeneratedTransactions(ctx, &core.RecurringTransaction{}, nil)
			return err
		}},
		{"NumberOfGeneratedTransactions", func() error {
			_, err := book.NumberOfGeneratedTransactions(ctx, &core.RecurringTransaction{})
			return err
		}},
		{"AttachmentIDs", func() error {
			_, err := book.AttachmentIDs(ctx, &core.Transaction{})
			return err
		}},
		{"MonthsTotalForCategory", func() error {
			_, err := book.MonthsTotalForCategory(ctx, &core.Category{Name: "x"}, 2024)
			return err
		}},
	}
	for _, g := range guards {
		if err := g.call(); err != core.ErrNotStored {
			t.Fatalf("%s error = %v, want ErrNotStored", g.name, err)
		}
		if !book.IsError() || book.LastError() != core.ErrNotStored {
			t.Fatalf("%s: sticky status = %v, want ErrNotStored", g.name, book.LastError())
		}
	}

	// and a successful call clears the guard failure again
	if _, err := book.Accounts(ctx, nil); err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	if book.IsError() {
		t.Fatalf("sticky status not cleared by successful call: %v", book.LastError())
	}
}

func TestAccountInitialAmountUpdateShiftsBalance(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Savings", "100")
	cat := seedCategory(t, book, "Salary", core.Income)

	tran := &core.Transaction{Account: acc, Category: cat,
		Amount: money.MustParse("50"), Date: core.NewDate(2024, 3, 10)}
	if err := book.StoreTransaction(ctx, tran); err != nil {
		t.Fatalf("StoreTransaction() error = %v", err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("150")) {
		t.Fatalf("balance = %s, want 150", got)
	}

	acc.InitialAmount = money.MustParse("200")
	if err := book.StoreAccount(ctx, acc); err != nil {
		t.Fatalf("StoreAccount() error = %v", err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("250")) {
		t.Fatalf("balance after initial-amount shift = %s, want 250", got)
	}
}

func TestTransactionBalanceLifecycle(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "100")
	expense := seedCategory(t, book, "Food", core.Expense)

	// positive magnitude under an expense category stores negated
	tran := &core.Transaction{Account: acc, Category: expense,
		Amount: money.MustParse("30"), Date: core.NewDate(2024, 1, 5)}
	if err := book.StoreTransaction(ctx, tran); err != nil {
		t.Fatalf("StoreTransaction() error = %v", err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("70")) {
		t.Fatalf("balance after expense = %s, want 70", got)
	}

	trans, err := book.Transactions(ctx, 2024, 1, nil, nil)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if len(trans) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(trans))
	}
	if got := trans[0].Amount; !got.Equal(money.MustParse("-30")) {
		t.Fatalf("stored amount = %s, want -30", got)
	}

	// update in place adjusts by the delta
	tran.Amount = money.MustParse("-45")
	if err := book.StoreTransaction(ctx, tran); err != nil {
		t.Fatalf("update StoreTransaction() error = %v", err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("55")) {
		t.Fatalf("balance after update = %s, want 55", got)
	}

	// moving the transaction to another account moves the amount
	other := seedAccount(t, book, "Wallet", "0")
	tran.Account = other
	if err := book.StoreTransaction(ctx, tran); err != nil {
		t.Fatalf("move StoreTransaction() error = %v", err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("100")) {
		t.Fatalf("old account balance = %s, want 100", got)
	}
	if got := accountBalance(t, book, other); !got.Equal(money.MustParse("-45")) {
		t.Fatalf("new account balance = %s, want -45", got)
	}

	// removal rolls the amount back out
	if err := book.RemoveTransaction(ctx, tran); err != nil {
		t.Fatalf("RemoveTransaction() error = %v", err)
	}
	if tran.Stored() {
		t.Fatal("expected removed transaction to be transient")
	}
	if got := accountBalance(t, book, other); !got.Equal(money.Zero) {
		t.Fatalf("balance after removal = %s, want 0", got)
	}
}

func TestStoreTransactionRequiresStoredReferences(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	cat := seedCategory(t, book, "Food", core.Expense)

	cases := []struct {
		name string
		tran *core.Transaction
		want error
	}{
		{"transient account", &core.Transaction{Account: &core.Account{Name: "x"}, Category: cat,
			Amount: money.MustParse("1"), Date: core.NewDate(2024, 1, 1)}, core.ErrAccountNotStored},
		{"transient category", &core.Transaction{Account: acc, Category: &core.Category{Name: "x"},
			Amount: money.MustParse("1"), Date: core.NewDate(2024, 1, 1)}, core.ErrCategoryNotStored},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := book.StoreTransaction(ctx, tc.tran); err != tc.want {
				t.Fatalf("StoreTransaction() error = %v, want %v", err, tc.want)
			}
			if tc.tran.Stored() {
				t.Fatal("rejected transaction must stay transient")
			}
		})
	}
}

func TestCategoryTypeFlipNegatesTransactions(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	cat := seedCategory(t, book, "Refunds", core.Expense)

	tran := &core.Transaction{Account: acc, Category: cat,
		Amount: money.MustParse("20"), Date: core.NewDate(2024, 2, 1)}
	if err := book.StoreTransaction(ctx, tran); err != nil {
		t.Fatalf("StoreTransaction() error = %v", err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("-20")) {
		t.Fatalf("balance = %s, want -20", got)
	}

	cat.Type = core.Income
	if err := book.StoreCategory(ctx, cat); err != nil {
		t.Fatalf("StoreCategory() flip error = %v", err)
	}

	trans, err := book.Transactions(ctx, 2024, 2, nil, nil)
	if err != nil {
		t.Fatalf("Transactions() error = %v", err)
	}
	if got := trans[0].Amount; !got.Equal(money.MustParse("20")) {
		t.Fatalf("amount after flip = %s, want 20", got)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("20")) {
		t.Fatalf("balance after flip = %s, want 20", got)
	}
}

func TestRemoveCategoryCascades(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "100")
	parent := seedCategory(t, book, "Home", core.Expense)
	child := &core.Category{Name: "Rent", Type: core.Expense, Parent: parent}
	if err := book.StoreCategory(ctx, child); err != nil {
		t.Fatalf("StoreCategory(child) error = %v", err)
	}

	for _, c := range []*core.Category{parent, child} {
		tran := &core.Transaction{Account: acc, Category: c,
			Amount: money.MustParse("10"), Date: core.NewDate(2024, 4, 1)}
		if err := book.StoreTransaction(ctx, tran); err != nil {
			t.Fatalf("StoreTransaction() error = %v", err)
		}
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("80")) {
		t.Fatalf("balance = %s, want 80", got)
	}

	if err := book.RemoveCategory(ctx, parent); err != nil {
		t.Fatalf("RemoveCategory() error = %v", err)
	}
	if parent.Stored() {
		t.Fatal("expected removed category to be transient")
	}

	if n, err := book.NumberOfCategories(ctx, nil); err != nil || n != 0 {
		t.Fatalf("NumberOfCategories() = %d, %v; want 0, nil", n, err)
	}
	if n, err := book.NumberOfTransactions(ctx, nil, nil, nil); err != nil || n != 0 {
		t.Fatalf("NumberOfTransactions() = %d, %v; want 0, nil", n, err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("100")) {
		t.Fatalf("balance after cascade = %s, want 100", got)
	}
}

func TestRemoveAccountCascades(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	keep := seedAccount(t, book, "Wallet", "5")
	cat := seedCategory(t, book, "Food", core.Expense)

	tran := &core.Transaction{Account: acc, Category: cat,
		Amount: money.MustParse("10"), Date: core.NewDate(2024, 5, 1)}
	if err := book.StoreTransaction(ctx, tran); err != nil {
		t.Fatalf("StoreTransaction() error = %v", err)
	}

	if err := book.RemoveAccount(ctx, acc); err != nil {
		t.Fatalf("RemoveAccount() error = %v", err)
	}
	if n, err := book.NumberOfAccounts(ctx); err != nil || n != 1 {
		t.Fatalf("NumberOfAccounts() = %d, %v; want 1, nil", n, err)
	}
	if n, err := book.NumberOfTransactions(ctx, nil, nil, nil); err != nil || n != 0 {
		t.Fatalf("NumberOfTransactions() = %d, %v; want 0, nil", n, err)
	}
	if got := accountBalance(t, book, keep); !got.Equal(money.MustParse("5")) {
		t.Fatalf("unrelated balance = %s, want 5", got)
	}
}

func TestStoreTransactionsBatchAtomicity(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	cat := seedCategory(t, book, "Food", core.Expense)

	// second member references an account row that does not exist, so
	// the balance adjustment fails mid transaction
	ghost := &core.Account{ID: uuid.New(), Name: "Ghost"}
	batch := []*core.Transaction{
		{Account: acc, Category: cat, Amount: money.MustParse("10"), Date: core.NewDate(2024, 6, 1)},
		{Account: ghost, Category: cat, Amount: money.MustParse("10"), Date: core.NewDate(2024, 6, 2)},
	}
	if err := book.StoreTransactions(ctx, batch); err == nil {
		t.Fatal("expected batch failure")
	}

	if n, err := book.NumberOfTransactions(ctx, nil, nil, nil); err != nil || n != 0 {
		t.Fatalf("NumberOfTransactions() = %d, %v; want 0, nil", n, err)
	}
	if batch[0].Stored() {
		t.Fatal("rolled-back member must be transient again")
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.Zero) {
		t.Fatalf("balance after rollback = %s, want 0", got)
	}
}

func TestCategoriesParentWiring(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	parent := seedCategory(t, book, "Home", core.Expense)
	child := &core.Category{Name: "Rent", Type: core.Expense, Parent: parent}
	if err := book.StoreCategory(ctx, child); err != nil {
		t.Fatalf("StoreCategory(child) error = %v", err)
	}

	cats, err := book.Categories(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	var got *core.Category
	for _, c := range cats {
		if c.Name == "Rent" {
			got = c
		}
	}
	if got == nil || got.Parent == nil || got.Parent.ID != parent.ID {
		t.Fatalf("child not wired to parent: %+v", got)
	}
}

func TestPersistGenerationsIdempotence(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	cat := seedCategory(t, book, "Rent", core.Expense)

	daily := core.Daily
	rec := &core.RecurringTransaction{
		Transaction: &core.Transaction{Account: acc, Category: cat,
			Amount: money.MustParse("700"), Contents: "rent"},
		Recurrence: &core.Recurrence{Start: core.NewDate(2020, 1, 1), Cadence: &daily},
	}
	if err := book.StoreRecurring(ctx, rec); err != nil {
		t.Fatalf("StoreRecurring() error = %v", err)
	}

	asOf := core.NewDate(2020, 1, 4)
	dates := rec.Recurrence.MissingDates(asOf)
	if len(dates) != 3 {
		t.Fatalf("expected 3 missing dates, got %d", len(dates))
	}

	generated, err := book.PersistGenerations(ctx, []Generation{{Template: rec, Dates: dates}})
	if err != nil {
		t.Fatalf("PersistGenerations() error = %v", err)
	}
	if len(generated) != 3 {
		t.Fatalf("generated %d transactions, want 3", len(generated))
	}
	for _, tran := range generated {
		if !tran.Recurrent {
			t.Fatal("generated transaction must be flagged recurrent")
		}
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("-2100")) {
		t.Fatalf("balance after generation = %s, want -2100", got)
	}

	// same asOf again: watermark advanced, nothing due
	again := rec.Recurrence.MissingDates(asOf)
	if len(again) != 0 {
		t.Fatalf("expected no dates on second run, got %d", len(again))
	}

	// the stored template carries the advanced watermark too
	recs, err := book.RecurringTransactions(ctx, nil)
	if err != nil {
		t.Fatalf("RecurringTransactions() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 template, got %d", len(recs))
	}
	if lg := recs[0].Recurrence.LastGenerated; lg == nil || !lg.Equal(asOf) {
		t.Fatalf("stored watermark = %v, want %s", lg, asOf)
	}

	if n, err := book.NumberOfGeneratedTransactions(ctx, rec); err != nil || n != 3 {
		t.Fatalf("NumberOfGeneratedTransactions() = %d, %v; want 3, nil", n, err)
	}
}

func TestRemoveRecurringKeepsOrRemovesGenerated(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	cat := seedCategory(t, book, "Rent", core.Expense)
	daily := core.Daily

	newTemplate := func() *core.RecurringTransaction {
		rec := &core.RecurringTransaction{
			Transaction: &core.Transaction{Account: acc, Category: cat, Amount: money.MustParse("10")},
			Recurrence:  &core.Recurrence{Start: core.NewDate(2020, 1, 1), Cadence: &daily},
		}
		if err := book.StoreRecurring(ctx, rec); err != nil {
			t.Fatalf("StoreRecurring() error = %v", err)
		}
		dates := rec.Recurrence.MissingDates(core.NewDate(2020, 1, 3))
		if _, err := book.PersistGenerations(ctx, []Generation{{Template: rec, Dates: dates}}); err != nil {
			t.Fatalf("PersistGenerations() error = %v", err)
		}
		return rec
	}

	kept := newTemplate()
	if err := book.RemoveRecurring(ctx, kept, false); err != nil {
		t.Fatalf("RemoveRecurring(keep) error = %v", err)
	}
	if n, err := book.NumberOfTransactions(ctx, nil, nil, nil); err != nil || n != 2 {
		t.Fatalf("kept transactions = %d, %v; want 2, nil", n, err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("-20")) {
		t.Fatalf("balance = %s, want -20", got)
	}

	removed := newTemplate()
	if err := book.RemoveRecurring(ctx, removed, true); err != nil {
		t.Fatalf("RemoveRecurring(remove) error = %v", err)
	}
	if n, err := book.NumberOfTransactions(ctx, nil, nil, nil); err != nil || n != 2 {
		t.Fatalf("transactions after removal = %d, %v; want 2, nil", n, err)
	}
	if got := accountBalance(t, book, acc); !got.Equal(money.MustParse("-20")) {
		t.Fatalf("balance after removal = %s, want -20", got)
	}
}

func TestMonthsTotals(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	food := seedCategory(t, book, "Food", core.Expense)
	salary := seedCategory(t, book, "Salary", core.Income)

	seed := []struct {
		cat    *core.Category
		amount string
		month  int
	}{
		{salary, "1000", 1},
		{food, "100.10", 1},
		{food, "0.20", 1},
		{food, "50", 3},
	}
	for _, s := range seed {
		tran := &core.Transaction{Account: acc, Category: s.cat,
			Amount: money.MustParse(s.amount), Date: core.NewDate(2024, s.month, 15)}
		if err := book.StoreTransaction(ctx, tran); err != nil {
			t.Fatalf("StoreTransaction() error = %v", err)
		}
	}

	accTotals, err := book.MonthsTotalForAccount(ctx, acc, 2024)
	if err != nil {
		t.Fatalf("MonthsTotalForAccount() error = %v", err)
	}
	if len(accTotals) != 12 {
		t.Fatalf("expected 12 totals, got %d", len(accTotals))
	}
	if got := accTotals[0]; !got.Equal(money.MustParse("899.70")) {
		t.Fatalf("january account total = %s, want 899.7", got)
	}
	if got := accTotals[1]; !got.Equal(money.Zero) {
		t.Fatalf("february account total = %s, want 0", got)
	}

	catTotals, err := book.MonthsTotalForCategory(ctx, food, 2024)
	if err != nil {
		t.Fatalf("MonthsTotalForCategory() error = %v", err)
	}
	// expense totals come back as positive magnitudes
	if got := catTotals[0]; !got.Equal(money.MustParse("100.30")) {
		t.Fatalf("january category total = %s, want 100.3", got)
	}
	if got := catTotals[2]; !got.Equal(money.MustParse("50")) {
		t.Fatalf("march category total = %s, want 50", got)
	}

	breakdown, err := book.CategoryBreakdown(ctx, 1, 2024)
	if err != nil {
		t.Fatalf("CategoryBreakdown() error = %v", err)
	}
	if len(breakdown.Categories) != 2 {
		t.Fatalf("expected 2 categories in breakdown, got %d", len(breakdown.Categories))
	}
	if !breakdown.Total.Equal(money.MustParse("899.70")) {
		t.Fatalf("breakdown total = %s, want 899.7", breakdown.Total)
	}
	for _, s := range breakdown.Categories {
		if s.Category.Name == "Food" {
			if s.Occurrences != 2 || !s.Total.Equal(money.MustParse("-100.30")) {
				t.Fatalf("food summary = %+v", s)
			}
		}
	}
}

func TestAttachments(t *testing.T) {
	book := newTestBook(t)
	ctx := context.Background()

	acc := seedAccount(t, book, "Checking", "0")
	cat := seedCategory(t, book, "Food", core.Expense)

	att := &core.Attachment{Name: "receipt.png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}
	if err := book.StoreAttachment(ctx, att); err != nil {
		t.Fatalf("StoreAttachment() error = %v", err)
	}

	tran := &core.Transaction{Account: acc, Category: cat,
		Amount: money.MustParse("12"), Date: core.NewDate(2024, 7, 1),
		Attachments: []uuid.UUID{att.ID}}
	if err := book.StoreTransaction(ctx, tran); err != nil {
		t.Fatalf("StoreTransaction() error = %v", err)
	}

	ids, err := book.AttachmentIDs(ctx, tran)
	if err != nil {
		t.Fatalf("AttachmentIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != att.ID {
		t.Fatalf("AttachmentIDs() = %v, want [%s]", ids, att.ID)
	}

	got, err := book.Attachment(ctx, att.ID)
	if err != nil {
		t.Fatalf("Attachment() error = %v", err)
	}
	if got.Name != "receipt.png" || len(got.Data) != 4 {
		t.Fatalf("unexpected attachment %+v", got)
	}
}
