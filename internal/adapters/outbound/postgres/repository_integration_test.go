//go:build integration

package postgres_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motorlot/saleverify/internal/adapters/outbound/postgres"
	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/testutil"
)

var saleTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func seedVehicle(t *testing.T, pool *pgxpool.Pool, tenantID, vehicleID, dealerID, vin string, status entity.VehicleStatus) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO vehicles (tenant_id, id, dealer_id, vin, status) VALUES ($1, $2, $3, $4, $5)`,
		tenantID, vehicleID, dealerID, vin, status)
	if err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
}

func inTx(t *testing.T, txm *postgres.TxManager, fn func(tx pgx.Tx) error) error {
	t.Helper()
	return txm.WithTransaction(context.Background(), fn)
}

func TestVehicleRepositoryLifecycle(t *testing.T) {
	pool, _, cleanup := testutil.SetupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	txm, err := postgres.NewTxManager(pool, discard())
	if err != nil {
		t.Fatalf("NewTxManager() error = %v", err)
	}
	repo := postgres.NewVehicleRepository(pool, discard())

	seedVehicle(t, pool, "t1", "veh-1", "dealer-1", "1HGCM82633A004352", entity.VehicleSoldPending)

	t.Run("get for update", func(t *testing.T) {
		err := inTx(t, txm, func(tx pgx.Tx) error {
			v, err := repo.GetForUpdateWithTX(ctx, tx, "t1", "veh-1")
			if err != nil {
				return err
			}
			if v == nil || v.Status != entity.VehicleSoldPending || v.DealerID != "dealer-1" {
				t.Errorf("vehicle = %+v, want pending dealer-1", v)
			}
			missing, err := repo.GetForUpdateWithTX(ctx, tx, "t1", "veh-404")
			if err != nil {
				return err
			}
			if missing != nil {
				t.Errorf("expected nil for unknown vehicle, got %+v", missing)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("transaction error = %v", err)
		}
	})

	t.Run("hold then verify clears annotations", func(t *testing.T) {
		err := inTx(t, txm, func(tx pgx.Tx) error {
			return repo.HoldForReviewWithTX(ctx, tx, "t1", "veh-1", 50, []string{"same_ip_dealer_client"})
		})
		if err != nil {
			t.Fatalf("hold error = %v", err)
		}

		err = inTx(t, txm, func(tx pgx.Tx) error {
			return repo.MarkVerifiedWithTX(ctx, tx, "t1", "veh-1", "PUR-ABC-1234567", saleTime)
		})
		if err != nil {
			t.Fatalf("verify error = %v", err)
		}

		err = inTx(t, txm, func(tx pgx.Tx) error {
			v, err := repo.GetForUpdateWithTX(ctx, tx, "t1", "veh-1")
			if err != nil {
				return err
			}
			if v.Status != entity.VehicleSoldVerified || v.PurchaseID != "PUR-ABC-1234567" {
				t.Errorf("vehicle = %+v, want verified with purchase id", v)
			}
			if v.FraudScore != nil || v.FraudFlags != nil {
				t.Errorf("fraud annotations = (%v, %v), want cleared", v.FraudScore, v.FraudFlags)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("transaction error = %v", err)
		}
	})

	t.Run("transitions guard on pending status", func(t *testing.T) {
		// veh-1 is SOLD_VERIFIED now; every transition must refuse it.
		err := inTx(t, txm, func(tx pgx.Tx) error {
			return repo.MarkExternalWithTX(ctx, tx, "t1", "veh-1", saleTime)
		})
		if err == nil {
			t.Error("expected error marking a verified vehicle as external")
		}
		err = inTx(t, txm, func(tx pgx.Tx) error {
			return repo.MarkVerifiedWithTX(ctx, tx, "t1", "veh-1", "PUR-XYZ-7654321", saleTime)
		})
		if err == nil {
			t.Error("expected error re-verifying a verified vehicle")
		}
	})

	t.Run("rollback leaves no trace", func(t *testing.T) {
		seedVehicle(t, pool, "t1", "veh-2", "dealer-1", "", entity.VehicleSoldPending)
		wantErr := inTx(t, txm, func(tx pgx.Tx) error {
			if err := repo.MarkExternalWithTX(ctx, tx, "t1", "veh-2", saleTime); err != nil {
				return err
			}
			return context.DeadlineExceeded
		})
		if wantErr == nil {
			t.Fatal("expected the transaction to fail")
		}

		var status string
		if err := pool.QueryRow(ctx, `SELECT status FROM vehicles WHERE tenant_id = 't1' AND id = 'veh-2'`).Scan(&status); err != nil {
			t.Fatalf("query status: %v", err)
		}
		if status != string(entity.VehicleSoldPending) {
			t.Errorf("status after rollback = %s, want pending", status)
		}
	})
}

func TestPurchaseIntentRepositoryLifecycle(t *testing.T) {
	pool, _, cleanup := testutil.SetupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	txm, err := postgres.NewTxManager(pool, discard())
	if err != nil {
		t.Fatalf("NewTxManager() error = %v", err)
	}
	repo := postgres.NewPurchaseIntentRepository(pool, discard())

	intent := &entity.PurchaseIntent{
		ID:            "intent-1",
		TenantID:      "t1",
		DealerID:      "dealer-1",
		VehicleID:     "veh-1",
		ClientID:      "client-1",
		InteractionID: "int-1",
		Status:        entity.IntentPending,
		FraudScore:    50,
		FraudFlags:    []string{"same_ip_dealer_client", "interaction_too_recent"},
		CreatedAt:     saleTime,
	}

	err = inTx(t, txm, func(tx pgx.Tx) error {
		return repo.CreateWithTX(ctx, tx, intent)
	})
	if err != nil {
		t.Fatalf("create error = %v", err)
	}

	t.Run("create is once only", func(t *testing.T) {
		err := inTx(t, txm, func(tx pgx.Tx) error {
			return repo.CreateWithTX(ctx, tx, intent)
		})
		if err == nil {
			t.Error("expected error creating a duplicate intent")
		}
	})

	t.Run("verify is write once", func(t *testing.T) {
		err := inTx(t, txm, func(tx pgx.Tx) error {
			return repo.MarkVerifiedWithTX(ctx, tx, "t1", "intent-1", "PUR-ABC-1234567", saleTime.Add(time.Hour))
		})
		if err != nil {
			t.Fatalf("verify error = %v", err)
		}
		err = inTx(t, txm, func(tx pgx.Tx) error {
			return repo.MarkVerifiedWithTX(ctx, tx, "t1", "intent-1", "PUR-XYZ-7654321", saleTime.Add(2*time.Hour))
		})
		if err == nil {
			t.Error("expected error stamping a second purchase id")
		}

		err = inTx(t, txm, func(tx pgx.Tx) error {
			got, err := repo.GetForUpdateWithTX(ctx, tx, "t1", "intent-1")
			if err != nil {
				return err
			}
			if got.Status != entity.IntentVerified || got.PurchaseID != "PUR-ABC-1234567" {
				t.Errorf("intent = %+v, want the first resolution preserved", got)
			}
			if got.FraudScore != 50 || len(got.FraudFlags) != 2 {
				t.Errorf("fraud record = (%d, %v), want untouched", got.FraudScore, got.FraudFlags)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("transaction error = %v", err)
		}
	})

	t.Run("list resolved in window", func(t *testing.T) {
		resolved, err := repo.ListResolvedInWindow(ctx, saleTime.Add(-time.Hour), saleTime.Add(time.Hour))
		if err != nil {
			t.Fatalf("list error = %v", err)
		}
		if len(resolved) != 1 || resolved[0].ID != "intent-1" {
			t.Errorf("resolved = %+v, want [intent-1]", resolved)
		}

		outside, err := repo.ListResolvedInWindow(ctx, saleTime.Add(time.Hour), saleTime.Add(2*time.Hour))
		if err != nil {
			t.Fatalf("list error = %v", err)
		}
		if len(outside) != 0 {
			t.Errorf("resolved outside window = %+v, want none", outside)
		}
	})
}

func TestFraudSignalQueries(t *testing.T) {
	pool, _, cleanup := testutil.SetupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	interactions := postgres.NewInteractionRepository(pool, discard())
	clients := postgres.NewClientRepository(pool, discard())
	sales := postgres.NewSalesHistoryRepository(pool, discard())
	inventory := postgres.NewInventoryIndex(pool, discard())

	_, err := pool.Exec(ctx,
		`INSERT INTO clients (tenant_id, id, created_at) VALUES ('t1', 'client-1', $1)`,
		saleTime.Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	_, err = pool.Exec(ctx,
		`INSERT INTO interactions (id, tenant_id, client_id, vehicle_id, dealer_id, kind, ip_address, occurred_at)
		 VALUES ('int-old', 't1', 'client-1', 'veh-1', 'dealer-1', 'chat', '198.51.100.7', $1),
		        ('int-new', 't1', 'client-1', 'veh-1', 'dealer-1', 'view', '198.51.100.7', $2)`,
		saleTime.Add(-48*time.Hour), saleTime.Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("seed interactions: %v", err)
	}
	// Same VIN in two tenants plus an external sale for the dealer history.
	seedVehicle(t, pool, "t1", "veh-1", "dealer-1", "1HGCM82633A004352", entity.VehicleSoldPending)
	seedVehicle(t, pool, "t2", "veh-9", "dealer-9", "1HGCM82633A004352", entity.VehicleAvailable)
	_, err = pool.Exec(ctx,
		`INSERT INTO vehicles (tenant_id, id, dealer_id, status, sold_at)
		 VALUES ('t1', 'veh-2', 'dealer-1', $1, $2), ('t1', 'veh-3', 'dealer-1', $3, $4)`,
		entity.VehicleSoldExternal, saleTime.Add(-24*time.Hour),
		entity.VehicleSoldVerified, saleTime.Add(-12*time.Hour))
	if err != nil {
		t.Fatalf("seed sold vehicles: %v", err)
	}

	latest, err := interactions.LatestInteraction(ctx, "t1", "client-1", "veh-1", "dealer-1")
	if err != nil {
		t.Fatalf("LatestInteraction() error = %v", err)
	}
	if latest == nil || latest.ID != "int-new" {
		t.Errorf("latest = %+v, want int-new", latest)
	}

	createdAt, err := clients.ClientCreatedAt(ctx, "t1", "client-1")
	if err != nil {
		t.Fatalf("ClientCreatedAt() error = %v", err)
	}
	if !createdAt.Equal(saleTime.Add(-30 * time.Minute)) {
		t.Errorf("createdAt = %v, want 30m before sale", createdAt)
	}
	missing, err := clients.ClientCreatedAt(ctx, "t1", "client-404")
	if err != nil {
		t.Fatalf("ClientCreatedAt() error = %v", err)
	}
	if !missing.IsZero() {
		t.Errorf("createdAt for unknown client = %v, want zero", missing)
	}

	statuses, err := sales.RecentDealerSaleStatuses(ctx, "t1", "dealer-1", 10)
	if err != nil {
		t.Fatalf("RecentDealerSaleStatuses() error = %v", err)
	}
	if len(statuses) != 2 || statuses[0] != entity.VehicleSoldVerified || statuses[1] != entity.VehicleSoldExternal {
		t.Errorf("statuses = %v, want newest-first [verified external]", statuses)
	}

	count, err := inventory.CountByVIN(ctx, "1HGCM82633A004352")
	if err != nil {
		t.Fatalf("CountByVIN() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountByVIN() = %d, want 2 across tenants", count)
	}
}

func TestMigratorIsIdempotent(t *testing.T) {
	pool, _, cleanup := testutil.SetupPostgres(t)
	defer cleanup()

	// SetupPostgres already applied the migrations once; a second pass must
	// verify checksums and apply nothing.
	testutil.RunMigrations(t, pool)

	var applied int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied == 0 {
		t.Error("expected at least one recorded migration")
	}
}
