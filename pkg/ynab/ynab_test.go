package ynab

import (
	"testing"
	"time"

	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/yurifrl/caixa/pkg/models"
)

func TestCustomIDRoundTrip(t *testing.T) {
	e := models.Entry{
		Date:        time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC),
		Description: "PIX, TRANSF",
		Value:       -232700,
		Source:      "Conta corrente - Itaú",
		Currency:    "BRL",
	}
	id := CustomID(e)
	assert.Len(t, id, 16)
	assert.Equal(t, id, CustomID(e))

	other := e
	other.Value = -232701
	assert.NotEqual(t, id, CustomID(other))

	memo := Memo(e)
	tx := Wrap(&transaction.Transaction{Memo: &memo})
	assert.Equal(t, id, tx.CustomID())
}

func TestWrapWithoutMemo(t *testing.T) {
	assert.Empty(t, Wrap(&transaction.Transaction{}).CustomID())
	plain := "no id here"
	assert.Empty(t, Wrap(&transaction.Transaction{Memo: &plain}).CustomID())
}
