package ynab

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/budget"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/yurifrl/caixa/pkg/models"
)

// YNABClient wraps the YNAB client and decodes the ledger id kept in memos.
type YNABClient struct {
	client ynab.ClientServicer
}

type TransactionService struct {
	original *transaction.Service
}

// Transaction is a remote YNAB transaction plus the ledger id found in the
// first CSV field of its memo.
type Transaction struct {
	*transaction.Transaction
	customID string
}

// Wrap decodes the custom id of tx.
func Wrap(tx *transaction.Transaction) *Transaction {
	return &Transaction{Transaction: tx, customID: extractCustomID(tx)}
}

func extractCustomID(tx *transaction.Transaction) string {
	if tx == nil || tx.Memo == nil {
		return ""
	}
	memo := strings.Trim(*tx.Memo, "\"")
	if idx := strings.Index(memo, ","); idx > 0 {
		return memo[:idx]
	}
	return ""
}

// CustomID derives a stable id from the natural key of a ledger entry.
func CustomID(e models.Entry) string {
	sum := sha256.Sum256([]byte(e.Key()))
	return hex.EncodeToString(sum[:8])
}

// Memo encodes the custom id ahead of the description so it survives a
// round trip through YNAB.
func Memo(e models.Entry) string {
	return fmt.Sprintf("%s,%s", CustomID(e), e.Description)
}

func New(token string) *YNABClient {
	return &YNABClient{
		client: ynab.NewClient(token),
	}
}

func (c *YNABClient) Transaction() *TransactionService {
	return &TransactionService{original: c.client.Transaction()}
}

func (c *YNABClient) Budget() *budget.Service {
	return c.client.Budget()
}

func (c *YNABClient) Account() *account.Service {
	return c.client.Account()
}

func (ts *TransactionService) GetTransactionsByAccount(budgetID, accountID string) ([]*Transaction, error) {
	originalTransactions, err := ts.original.GetTransactionsByAccount(budgetID, accountID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ynab transactions: %w", err)
	}
	transactions := make([]*Transaction, 0, len(originalTransactions))
	for _, tx := range originalTransactions {
		transactions = append(transactions, Wrap(tx))
	}
	return transactions, nil
}

// CreateTransactions creates multiple transactions in one API call.
func (ts *TransactionService) CreateTransactions(budgetID string, payloads []transaction.PayloadTransaction) error {
	if len(payloads) == 0 {
		return nil
	}
	if _, err := ts.original.CreateTransactions(budgetID, payloads); err != nil {
		return fmt.Errorf("failed to create ynab transactions: %w", err)
	}
	return nil
}

func (t *Transaction) CustomID() string {
	return t.customID
}
