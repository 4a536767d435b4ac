package executors

import (
	"fmt"

	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/yurifrl/caixa/pkg/ledger"
	"github.com/yurifrl/caixa/pkg/ynab"
)

// BuildReport is pure; the side-effecting parts (YNAB calls, printing) stay
// on *Executor so the CLI and the server share the matching logic.

type Status int

const (
	Synced Status = iota
	ToAdd
)

// Entry links a ledger row with its remote counterpart, if any.
type Entry struct {
	Local  ledger.Row
	Remote *ynab.Transaction // nil when status == ToAdd
	Status Status
}

func (e Entry) RemoteCustomID() string {
	if e.Remote == nil {
		return ""
	}
	return e.Remote.CustomID()
}

type Report struct {
	Items []Entry
	// Unresolved rows have no base-currency value and cannot be exported.
	Unresolved []ledger.Row
	toSync     []ledger.Row
}

// Milliunits converts a row's base value to YNAB milliunits.
func Milliunits(r ledger.Row) int64 {
	return r.BaseValue * 10
}

func matchKey(milliunits int64, payee, date string) string {
	return fmt.Sprintf("%d|%s|%s", milliunits, payee, date)
}

// BuildReport matches ledger rows against remote transactions, either by the
// memo-encoded id or by amount, payee and date.
func BuildReport(local []ledger.Row, remote []*ynab.Transaction, matchByID bool) *Report {
	idx := make(map[string]*ynab.Transaction, len(remote))
	for _, rt := range remote {
		key := rt.CustomID()
		if !matchByID {
			payee := ""
			if rt.PayeeName != nil {
				payee = *rt.PayeeName
			}
			key = matchKey(rt.Amount, payee, rt.Date.Format("2006-01-02"))
		}
		if _, ok := idx[key]; !ok && key != "" {
			idx[key] = rt
		}
	}

	r := &Report{Items: make([]Entry, 0, len(local))}
	for _, lt := range local {
		if lt.Unresolved {
			r.Unresolved = append(r.Unresolved, lt)
			continue
		}
		key := ynab.CustomID(lt.Entry)
		if !matchByID {
			key = matchKey(Milliunits(lt), lt.Description, lt.Date.Format("2006-01-02"))
		}
		found := idx[key]
		if found != nil {
			// each remote transaction accounts for one local row
			delete(idx, key)
			r.Items = append(r.Items, Entry{Local: lt, Remote: found, Status: Synced})
			continue
		}
		r.Items = append(r.Items, Entry{Local: lt, Status: ToAdd})
		r.toSync = append(r.toSync, lt)
	}
	return r
}

// InSyncCount returns how many rows already exist remotely.
func (r *Report) InSyncCount() int {
	return len(r.Items) - len(r.toSync)
}

// MissingCount returns how many rows still need to be created.
func (r *Report) MissingCount() int {
	return len(r.toSync)
}

func (r *Report) RowsToSync() []ledger.Row {
	return r.toSync
}

// Payloads converts the rows that still need syncing into YNAB API payloads.
func (r *Report) Payloads(accountID string) []transaction.PayloadTransaction {
	out := make([]transaction.PayloadTransaction, 0, len(r.toSync))
	for _, lt := range r.toSync {
		payee := lt.Description
		memo := ynab.Memo(lt.Entry)
		out = append(out, transaction.PayloadTransaction{
			AccountID: accountID,
			Date:      api.Date{Time: lt.Date},
			Amount:    Milliunits(lt),
			Cleared:   transaction.ClearingStatusCleared,
			Approved:  true,
			PayeeName: &payee,
			Memo:      &memo,
		})
	}
	return out
}
