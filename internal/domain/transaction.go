package domain

import (
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/digcity/portal-tools/internal/csvtok"
	"github.com/digcity/portal-tools/internal/normalize"
)

// TransactionType is the direction of a cash movement.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// StatusCompleted is the status written for imported ledger entries.
const StatusCompleted = "completed"

// Transaction is one finance ledger entry. Amount is in whole rupiah.
type Transaction struct {
	ID          string
	Date        civil.Date
	Description string
	Amount      int64
	Type        TransactionType
	Category    string
	Status      string
}

func (t *Transaction) Kind() Kind { return KindTransaction }
func (t *Transaction) RecordID() string { return t.ID }
func (t *Transaction) AssignID(id string) { t.ID = id }

func (t *Transaction) NaturalKey() string {
	return fmt.Sprintf("%s|%s|%d|%s", t.Date, t.Type, t.Amount, t.Description)
}

func (t *Transaction) Validate() error {
	switch {
	case !t.Date.IsValid():
		return invalid("transaction date %q is not a calendar date", t.Date)
	case t.Amount <= 0:
		return invalid("transaction amount must be positive, got %d", t.Amount)
	case t.Type != Income && t.Type != Expense:
		return invalid("transaction type %q", t.Type)
	case t.Description == "":
		return invalid("transaction description is empty")
	}
	return nil
}

var lineNumberRe = regexp.MustCompile(`^\d+[.)]$`)

// LedgerSection reports the transaction type a ledger heading line switches
// to ("PEMASUKAN" for income, "PENGELUARAN" for expense). A line that starts
// with a date or carries a rupiah amount is an entry, never a heading, even
// when its description mentions a section word.
func LedgerSection(line string) (TransactionType, bool) {
	tokens := strings.Fields(line)
	if len(tokens) > 0 && lineNumberRe.MatchString(tokens[0]) {
		tokens = tokens[1:]
	}
	if len(tokens) > 0 {
		if _, ok := normalize.ParseDate(tokens[0]); ok {
			return "", false
		}
	}
	if _, _, ok := normalize.ParseAmountTokens(tokens); ok {
		return "", false
	}

	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "PENGELUARAN"):
		return Expense, true
	case strings.Contains(upper, "PEMASUKAN"):
		return Income, true
	}
	return "", false
}

// BuildTransactionFromLine parses a ledger text line of the form
// "1. 14/01/2025 Sisa uang DIGCITY 2023/2024 Rp 545.000".
func BuildTransactionFromLine(line string, typ TransactionType) (*Transaction, error) {
	tokens := strings.Fields(line)
	if len(tokens) > 0 && lineNumberRe.MatchString(tokens[0]) {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return nil, invalid("empty ledger line")
	}

	date, ok := normalize.ParseDate(tokens[0])
	if !ok {
		return nil, invalid("unrecognised date %q", tokens[0])
	}

	desc, amount, ok := normalize.ParseAmountTokens(tokens[1:])
	if !ok {
		return nil, invalid("no rupiah amount in %q", line)
	}

	tx := &Transaction{
		Date:        date,
		Description: clean(desc),
		Amount:      amount,
		Type:        typ,
		Status:      StatusCompleted,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Finance CSV columns.
const (
	finColDate        = 1
	finColDescription = 2
	finColIncome      = 3
	finColExpense     = 4
	finColCategory    = 5
)

// BuildTransactionFromRow parses a finance sheet row:
// [no, date, description, income, expense, category].
// Exactly one of income/expense is expected to hold an amount; income wins
// when both do.
func BuildTransactionFromRow(row []string) (*Transaction, error) {
	date, ok := normalize.ParseDate(csvtok.Field(row, finColDate))
	if !ok {
		return nil, invalid("unrecognised date %q", csvtok.Field(row, finColDate))
	}

	tx := &Transaction{
		Date:        date,
		Description: clean(csvtok.Field(row, finColDescription)),
		Category:    clean(csvtok.Field(row, finColCategory)),
		Status:      StatusCompleted,
	}

	if amount, ok := normalize.ParseAmount(csvtok.Field(row, finColIncome)); ok && amount > 0 {
		tx.Type, tx.Amount = Income, amount
	} else if amount, ok := normalize.ParseAmount(csvtok.Field(row, finColExpense)); ok && amount > 0 {
		tx.Type, tx.Amount = Expense, amount
	} else {
		return nil, invalid("no income or expense amount")
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}
