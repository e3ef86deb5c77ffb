package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/courtpay/internal/models"
)

func TestRecordSettlementAccumulatesDailyAggregate(t *testing.T) {
	store := models.NewMemoryStore()
	ss := NewSettlementService(store, testLogger())
	ctx := context.Background()

	err := ss.Record(ctx, "fac-1", "2024-05-01", "P1", models.ModalityFull, models.SettlementAmounts{
		Charged: 100, Commission: 10, Net: 90,
	})
	require.NoError(t, err)

	err = ss.Record(ctx, "fac-1", "2024-05-01", "P2", models.ModalityDeposit, models.SettlementAmounts{
		Charged: 50, Commission: 5, Net: 45,
	})
	require.NoError(t, err)

	daily, err := ss.Daily(ctx, "fac-1", "2024-05-01")
	require.NoError(t, err)
	require.NotNil(t, daily)
	assert.Equal(t, int64(2), daily.TotalCount)
	assert.Equal(t, int64(1), daily.FullCount)
	assert.Equal(t, int64(1), daily.DepositCount)
	assert.Equal(t, 150.0, daily.ChargedTotal)
	assert.Equal(t, 15.0, daily.CommissionTotal)
	assert.Equal(t, 135.0, daily.NetTotal)
}

func TestRecordSettlementIsIdempotentPerPaymentID(t *testing.T) {
	store := models.NewMemoryStore()
	ss := NewSettlementService(store, testLogger())
	ctx := context.Background()

	amounts := models.SettlementAmounts{Charged: 100, Commission: 10, Net: 90}
	require.NoError(t, ss.Record(ctx, "fac-1", "2024-05-01", "P1", models.ModalityFull, amounts))

	before, err := ss.Daily(ctx, "fac-1", "2024-05-01")
	require.NoError(t, err)

	// Duplicate webhook delivery: second record is a no-op.
	require.NoError(t, ss.Record(ctx, "fac-1", "2024-05-01", "P1", models.ModalityFull, amounts))

	after, err := ss.Daily(ctx, "fac-1", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, before.TotalCount, after.TotalCount)
	assert.Equal(t, before.ChargedTotal, after.ChargedTotal)
	assert.Equal(t, before.CommissionTotal, after.CommissionTotal)
	assert.Equal(t, before.NetTotal, after.NetTotal)
}

func TestRecordSettlementRequiresPaymentID(t *testing.T) {
	store := models.NewMemoryStore()
	ss := NewSettlementService(store, testLogger())

	err := ss.Record(context.Background(), "fac-1", "2024-05-01", "", models.ModalityFull, models.SettlementAmounts{})
	assert.Error(t, err)
}

func TestConcurrentSettlementsCountEachPaymentOnce(t *testing.T) {
	store := models.NewMemoryStore()
	ss := NewSettlementService(store, testLogger())
	ctx := context.Background()

	const payments = 20
	var wg sync.WaitGroup
	for i := 0; i < payments; i++ {
		// Each payment delivered twice, concurrently.
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				err := ss.Record(ctx, "fac-1", "2024-05-01", fmt.Sprintf("P%d", n), models.ModalityFull,
					models.SettlementAmounts{Charged: 10, Commission: 1, Net: 9})
				assert.NoError(t, err)
			}(i)
		}
	}
	wg.Wait()

	daily, err := ss.Daily(ctx, "fac-1", "2024-05-01")
	require.NoError(t, err)
	require.NotNil(t, daily)
	assert.Equal(t, int64(payments), daily.TotalCount)
	assert.Equal(t, float64(payments*10), daily.ChargedTotal)
}

func TestDailyReturnsNilWhenNothingSettled(t *testing.T) {
	store := models.NewMemoryStore()
	ss := NewSettlementService(store, testLogger())

	daily, err := ss.Daily(context.Background(), "fac-1", "2024-05-01")
	require.NoError(t, err)
	assert.Nil(t, daily)
}
