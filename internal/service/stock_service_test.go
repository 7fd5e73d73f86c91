package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/shop-engine/internal/model"
)

func TestWeightedAverageCost(t *testing.T) {
	cases := []struct {
		name     string
		oldQty   int
		oldCost  float64
		qty      int
		price    float64
		expected float64
	}{
		{"first import", 0, 0, 10, 5, 5},
		{"equal batches", 10, 4, 10, 6, 5},
		{"weighted towards larger batch", 30, 10, 10, 30, 15},
		{"same price keeps cost", 7, 8, 13, 8, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, WeightedAverageCost(tc.oldQty, tc.oldCost, tc.qty, tc.price), 1e-9)
		})
	}
}

func TestImportRecalculatesCost(t *testing.T) {
	db := setupTestDB(t)
	stock, _, _, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 20, 0)

	rows, err := stock.Import(ctx, []StockItem{{ProductID: p.ID, Quantity: 10, UnitPrice: 4}}, "tester", "first batch")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.StockTxTypeImport, rows[0].Type)

	_, err = stock.Import(ctx, []StockItem{{ProductID: p.ID, Quantity: 10, UnitPrice: 6}}, "tester", "second batch")
	require.NoError(t, err)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 20, got.StockQuantity)
	assert.InDelta(t, 5.0, got.CostPrice, 1e-9)
}

func TestImportIsAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	stock, _, _, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 20, 0)

	_, err := stock.Import(ctx, []StockItem{
		{ProductID: p.ID, Quantity: 5, UnitPrice: 3},
		{ProductID: 99999, Quantity: 5, UnitPrice: 3},
	}, "tester", "")
	require.ErrorIs(t, err, ErrNotFound)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 0, got.StockQuantity, "first line must have been rolled back")
	var cnt int64
	require.NoError(t, db.Model(&model.StockTransaction{}).Count(&cnt).Error)
	assert.Zero(t, cnt)
}

func TestExportFailsFastWithoutPartialMutation(t *testing.T) {
	db := setupTestDB(t)
	stock, _, _, _ := newServices(t, db)
	ctx := context.Background()
	a := seedProduct(t, db, "a", 10, 50)
	b := seedProduct(t, db, "b", 10, 3)

	_, err := stock.Export(ctx, []StockItem{
		{ProductID: a.ID, Quantity: 5},
		{ProductID: b.ID, Quantity: 4}, // 超过 b 的库存
	}, "tester", "", "", "")
	require.ErrorIs(t, err, ErrInsufficientStock)

	var gotA, gotB model.Product
	require.NoError(t, db.First(&gotA, a.ID).Error)
	require.NoError(t, db.First(&gotB, b.ID).Error)
	assert.Equal(t, 50, gotA.StockQuantity)
	assert.Equal(t, 3, gotB.StockQuantity)
}

func TestExportAppendsLedgerRows(t *testing.T) {
	db := setupTestDB(t)
	stock, _, _, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 50)

	rows, err := stock.Export(ctx, []StockItem{{ProductID: p.ID, Quantity: 8}}, "tester", "", "", "damaged")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.StockTxTypeExport, rows[0].Type)
	assert.Equal(t, model.StockRefManual, rows[0].ReferenceType)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 42, got.StockQuantity)
}

func TestReserveInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	stock, _, _, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		return stock.Reserve(ctx, tx, p.ID, 4, "ord-1")
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	err = db.Transaction(func(tx *gorm.DB) error {
		return stock.Reserve(ctx, tx, 99999, 1, "ord-1")
	})
	require.ErrorIs(t, err, ErrNotFound)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 3, got.StockQuantity)
	assert.Equal(t, 0, got.SoldCount)
}

func TestReserveThenRestoreIsInverse(t *testing.T) {
	db := setupTestDB(t)
	stock, _, _, _ := newServices(t, db)
	ctx := context.Background()
	p := seedProduct(t, db, "widget", 10, 5)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return stock.Reserve(ctx, tx, p.ID, 2, "ord-1")
	}))
	var mid model.Product
	require.NoError(t, db.First(&mid, p.ID).Error)
	assert.Equal(t, 3, mid.StockQuantity)
	assert.Equal(t, 2, mid.SoldCount)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return stock.Restore(ctx, tx, p.ID, 2, "ord-1")
	}))
	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 5, got.StockQuantity)
	assert.Equal(t, 0, got.SoldCount)

	var ledger []model.StockTransaction
	require.NoError(t, db.Where("reference_id = ?", "ord-1").Order("created_at").Find(&ledger).Error)
	assert.Len(t, ledger, 2)
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	db := setupTestDB(t)
	stock, _, _, _ := newServices(t, db)
	ctx := context.Background()
	const initial = 3
	p := seedProduct(t, db, "hot item", 10, initial)

	var ok, soldOut atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				return stock.Reserve(ctx, tx, p.ID, 2, "ord-conc")
			})
			switch {
			case err == nil:
				ok.Add(1)
			default:
				soldOut.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load(), "stock 3 admits exactly one qty-2 reservation")
	assert.EqualValues(t, 9, soldOut.Load())
	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, 1, got.StockQuantity)
	assert.GreaterOrEqual(t, got.StockQuantity, 0)
}
