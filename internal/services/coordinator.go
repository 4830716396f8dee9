package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kabarecoop/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Coordinator wraps every multi-step mutation in a single all-or-nothing SQL
// transaction. It is the only component that composes the ledger store with
// the transaction log; concurrent operations on the same account serialize
// on the FOR UPDATE row locks the ledger takes, and two-account operations
// lock in ascending account-number order so opposing transfers cannot
// deadlock.
type Coordinator struct {
	db     *sql.DB
	ledger *LedgerService
	txlog  *TransactionLog
	clock  Clock
	ids    IDSource
	log    *logrus.Logger
	events *EventQueue
}

func NewCoordinator(db *sql.DB, ledger *LedgerService, txlog *TransactionLog, clock Clock, ids IDSource, log *logrus.Logger, events *EventQueue) *Coordinator {
	return &Coordinator{
		db:     db,
		ledger: ledger,
		txlog:  txlog,
		clock:  clock,
		ids:    ids,
		log:    log,
		events: events,
	}
}

// Execute runs fn as one unit of work: either every sub-effect commits or
// none does. Untyped failures come back as KindInternal.
func (c *Coordinator) Execute(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Internalf(err, "beginning unit of work")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if _, ok := err.(*Error); ok {
			return err
		}
		return Internalf(err, "unit of work failed")
	}

	if err := tx.Commit(); err != nil {
		return Internalf(err, "committing unit of work")
	}
	return nil
}

func (c *Coordinator) newTransaction(txType models.TransactionType, amount decimal.Decimal, description, reference string, userID, accountID string) *models.Transaction {
	return &models.Transaction{
		ID:          c.ids.NewID(),
		Type:        txType,
		Amount:      amount,
		Description: description,
		Reference:   reference,
		UserID:      userID,
		AccountID:   accountID,
		CreatedAt:   c.clock.Now(),
	}
}

func processedBy(actor models.Actor, ownerID string) *string {
	if actor.Role == models.RoleCashier && actor.UserID != ownerID {
		id := actor.UserID
		return &id
	}
	return nil
}

// Deposit credits an account and appends the matching DEPOSIT row.
func (c *Coordinator) Deposit(ctx context.Context, actor models.Actor, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, Validationf("amount must be positive")
	}
	if description == "" {
		description = "Cash deposit"
	}

	var txn *models.Transaction
	err := c.Execute(ctx, func(tx *sql.Tx) error {
		account, err := c.ledger.LockAccountByNumber(tx, accountNumber)
		if err != nil {
			return err
		}
		if _, err := c.ledger.ApplyDelta(tx, account, amount); err != nil {
			return err
		}
		txn = c.newTransaction(models.TxDeposit, amount, description, c.ids.Reference(RefDeposit), account.UserID, account.ID)
		txn.ProcessedBy = processedBy(actor, account.UserID)
		return c.txlog.Append(tx, txn)
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"reference": txn.Reference, "account": accountNumber}).Info("deposit committed")
	c.events.PublishTransaction(ctx, txn)
	return txn, nil
}

// Withdraw debits an account, rejecting before any mutation when the balance
// is insufficient, and appends the matching WITHDRAWAL row.
func (c *Coordinator) Withdraw(ctx context.Context, actor models.Actor, accountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, Validationf("amount must be positive")
	}
	if description == "" {
		description = "Cash withdrawal"
	}

	var txn *models.Transaction
	err := c.Execute(ctx, func(tx *sql.Tx) error {
		account, err := c.ledger.LockAccountByNumber(tx, accountNumber)
		if err != nil {
			return err
		}
		if _, err := c.ledger.ApplyDelta(tx, account, amount.Neg()); err != nil {
			return err
		}
		txn = c.newTransaction(models.TxWithdrawal, amount.Neg(), description, c.ids.Reference(RefWithdrawal), account.UserID, account.ID)
		txn.ProcessedBy = processedBy(actor, account.UserID)
		return c.txlog.Append(tx, txn)
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{"reference": txn.Reference, "account": accountNumber}).Info("withdrawal committed")
	c.events.PublishTransaction(ctx, txn)
	return txn, nil
}

// WithdrawOwn debits the actor's own savings account.
func (c *Coordinator) WithdrawOwn(ctx context.Context, actor models.Actor, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, Validationf("amount must be positive")
	}
	if description == "" {
		description = "Cash withdrawal"
	}

	var txn *models.Transaction
	err := c.Execute(ctx, func(tx *sql.Tx) error {
		account, err := c.ledger.LockSavingsAccountByUser(tx, actor.UserID)
		if err != nil {
			return err
		}
		if _, err := c.ledger.ApplyDelta(tx, account, amount.Neg()); err != nil {
			return err
		}
		txn = c.newTransaction(models.TxWithdrawal, amount.Neg(), description, c.ids.Reference(RefWithdrawal), account.UserID, account.ID)
		return c.txlog.Append(tx, txn)
	})
	if err != nil {
		return nil, err
	}

	c.log.WithField("reference", txn.Reference).Info("withdrawal committed")
	c.events.PublishTransaction(ctx, txn)
	return txn, nil
}

// Transfer moves funds from one account to another. Both balance updates and
// both transaction rows, sharing one reference, commit together or not at
// all. Accounts are locked in ascending account-number order.
func (c *Coordinator) Transfer(ctx context.Context, actor models.Actor, fromAccountNumber, toAccountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, Validationf("amount must be positive")
	}
	if toAccountNumber == "" {
		return nil, Validationf("destination account number is required")
	}
	if fromAccountNumber == toAccountNumber {
		return nil, Preconditionf("cannot transfer to the same account")
	}

	var outTxn *models.Transaction
	err := c.Execute(ctx, func(tx *sql.Tx) error {
		first, second := fromAccountNumber, toAccountNumber
		if first > second {
			first, second = second, first
		}

		firstAccount, err := c.ledger.LockAccountByNumber(tx, first)
		if err != nil {
			return err
		}
		secondAccount, err := c.ledger.LockAccountByNumber(tx, second)
		if err != nil {
			return err
		}

		from, to := firstAccount, secondAccount
		if first != fromAccountNumber {
			from, to = secondAccount, firstAccount
		}
		if from.UserID != actor.UserID && actor.Role == models.RoleClient {
			return Preconditionf("account %s does not belong to the caller", from.AccountNumber)
		}

		if _, err := c.ledger.ApplyDelta(tx, from, amount.Neg()); err != nil {
			return err
		}
		if _, err := c.ledger.ApplyDelta(tx, to, amount); err != nil {
			return err
		}

		reference := c.ids.Reference(RefTransfer)
		outDescription := description
		if outDescription == "" {
			outDescription = fmt.Sprintf("Transfer to %s", to.AccountNumber)
		}
		inDescription := description
		if inDescription == "" {
			inDescription = fmt.Sprintf("Transfer from %s", from.AccountNumber)
		}

		outTxn = c.newTransaction(models.TxTransferOut, amount.Neg(), outDescription, reference, from.UserID, from.ID)
		outTxn.CounterAccountID = &to.ID
		if err := c.txlog.Append(tx, outTxn); err != nil {
			return err
		}

		inTxn := c.newTransaction(models.TxTransferIn, amount, inDescription, reference, to.UserID, to.ID)
		inTxn.CounterAccountID = &from.ID
		return c.txlog.Append(tx, inTxn)
	})
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"reference": outTxn.Reference,
		"from":      fromAccountNumber,
		"to":        toAccountNumber,
	}).Info("transfer committed")
	c.events.PublishTransaction(ctx, outTxn)
	return outTxn, nil
}

// TransferOwn moves funds from the actor's savings account to the given
// destination account number.
func (c *Coordinator) TransferOwn(ctx context.Context, actor models.Actor, toAccountNumber string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	rows, err := c.ledger.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	for _, account := range rows {
		if account.Type == models.AccountSavings {
			return c.Transfer(ctx, actor, account.AccountNumber, toAccountNumber, amount, description)
		}
	}
	return nil, NotFoundf("no savings account for user %s", actor.UserID)
}
