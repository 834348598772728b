package unlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxProvider_FetchProducts(t *testing.T) {
	s := NewSandboxProvider()

	got := make(chan ProductsResponse, 1)
	s.FetchProducts([]string{ProductID, "bogus"}, func(resp ProductsResponse, err error) {
		require.NoError(t, err)
		got <- resp
	})

	select {
	case resp := <-got:
		require.Len(t, resp.Products, 1)
		assert.Equal(t, ProductID, resp.Products[0].ID)
		assert.Equal(t, []string{"bogus"}, resp.InvalidIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for products reply")
	}
}

func TestSandboxProvider_PurchaseDeliversAndFinishes(t *testing.T) {
	s := NewSandboxProvider()

	batches := make(chan []Transaction, 1)
	s.Observe(func(batch []Transaction) { batches <- batch })

	s.Purchase(ProductID)

	select {
	case batch := <-batches:
		require.Len(t, batch, 1)
		tx := batch[0]
		assert.Equal(t, TxPurchased, tx.State)
		assert.Equal(t, ProductID, tx.ProductID)

		assert.False(t, s.Finished(tx.ID))
		s.Finish(tx.ID)
		assert.True(t, s.Finished(tx.ID))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transaction")
	}
}

func TestSandboxProvider_RestoreDeliversRestored(t *testing.T) {
	s := NewSandboxProvider()

	batches := make(chan []Transaction, 1)
	s.Observe(func(batch []Transaction) { batches <- batch })

	s.Restore()

	select {
	case batch := <-batches:
		require.Len(t, batch, 1)
		assert.Equal(t, TxRestored, batch[0].State)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transaction")
	}
}

func TestSandboxProvider_NoObserverDropsDelivery(t *testing.T) {
	s := NewSandboxProvider()
	s.Purchase(ProductID) // must not panic
}
