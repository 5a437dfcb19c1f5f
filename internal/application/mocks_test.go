package application

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/motorlot/saleverify/internal/domain/entity"
	"github.com/motorlot/saleverify/internal/ports/outbound"
)

type fakeTxManager struct {
	beginErr error
}

func (m *fakeTxManager) WithTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(nil)
}

type fakeVehicleRepo struct {
	vehicles  map[string]*entity.Vehicle
	getErr    error
	healthErr error
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{vehicles: make(map[string]*entity.Vehicle)}
}

func (r *fakeVehicleRepo) put(v *entity.Vehicle) {
	r.vehicles[v.TenantID+"/"+v.ID] = v
}

func (r *fakeVehicleRepo) GetForUpdateWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string) (*entity.Vehicle, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.vehicles[tenantID+"/"+vehicleID], nil
}

func (r *fakeVehicleRepo) MarkExternalWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string, soldAt time.Time) error {
	v := r.vehicles[tenantID+"/"+vehicleID]
	v.Status = entity.VehicleSoldExternal
	v.SoldAt = &soldAt
	return nil
}

func (r *fakeVehicleRepo) MarkVerifiedWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID, purchaseID string, soldAt time.Time) error {
	v := r.vehicles[tenantID+"/"+vehicleID]
	v.Status = entity.VehicleSoldVerified
	v.PurchaseID = purchaseID
	v.SoldAt = &soldAt
	v.FraudScore = nil
	v.FraudFlags = nil
	return nil
}

func (r *fakeVehicleRepo) HoldForReviewWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string, score int, flags []string) error {
	v := r.vehicles[tenantID+"/"+vehicleID]
	v.FraudScore = &score
	v.FraudFlags = flags
	return nil
}

func (r *fakeVehicleRepo) ReleaseWithTX(_ context.Context, _ pgx.Tx, tenantID, vehicleID string) error {
	v := r.vehicles[tenantID+"/"+vehicleID]
	v.Status = entity.VehicleAvailable
	v.PurchaseID = ""
	v.FraudScore = nil
	v.FraudFlags = nil
	v.SoldAt = nil
	return nil
}

func (r *fakeVehicleRepo) HealthCheck(_ context.Context) error {
	return r.healthErr
}

type fakeInteractionRepo struct {
	interactions []*entity.Interaction
	err          error
}

func (r *fakeInteractionRepo) LatestInteraction(_ context.Context, tenantID, clientID, vehicleID, dealerID string) (*entity.Interaction, error) {
	if r.err != nil {
		return nil, r.err
	}
	var latest *entity.Interaction
	for _, i := range r.interactions {
		if i.TenantID != tenantID || i.ClientID != clientID || i.VehicleID != vehicleID || i.DealerID != dealerID {
			continue
		}
		if latest == nil || i.OccurredAt.After(latest.OccurredAt) {
			latest = i
		}
	}
	return latest, nil
}

type fakeIntentRepo struct {
	intents   map[string]*entity.PurchaseIntent
	createErr error
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: make(map[string]*entity.PurchaseIntent)}
}

func (r *fakeIntentRepo) CreateWithTX(_ context.Context, _ pgx.Tx, intent *entity.PurchaseIntent) error {
	if r.createErr != nil {
		return r.createErr
	}
	copied := *intent
	r.intents[intent.TenantID+"/"+intent.ID] = &copied
	return nil
}

func (r *fakeIntentRepo) GetForUpdateWithTX(_ context.Context, _ pgx.Tx, tenantID, intentID string) (*entity.PurchaseIntent, error) {
	return r.intents[tenantID+"/"+intentID], nil
}

func (r *fakeIntentRepo) MarkVerifiedWithTX(_ context.Context, _ pgx.Tx, tenantID, intentID, purchaseID string, verifiedAt time.Time) error {
	i := r.intents[tenantID+"/"+intentID]
	i.Status = entity.IntentVerified
	i.PurchaseID = purchaseID
	i.VerifiedAt = &verifiedAt
	return nil
}

func (r *fakeIntentRepo) MarkRejectedWithTX(_ context.Context, _ pgx.Tx, tenantID, intentID string) error {
	r.intents[tenantID+"/"+intentID].Status = entity.IntentRejected
	return nil
}

func (r *fakeIntentRepo) ListResolvedInWindow(_ context.Context, from, to time.Time) ([]*entity.PurchaseIntent, error) {
	var out []*entity.PurchaseIntent
	for _, i := range r.intents {
		if !i.Status.IsTerminal() {
			continue
		}
		if i.CreatedAt.Before(from) || !i.CreatedAt.Before(to) {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (r *fakeIntentRepo) single() *entity.PurchaseIntent {
	for _, i := range r.intents {
		return i
	}
	return nil
}

type fakeClientRepo struct {
	createdAt map[string]time.Time
	err       error
}

func (r *fakeClientRepo) ClientCreatedAt(_ context.Context, tenantID, clientID string) (time.Time, error) {
	if r.err != nil {
		return time.Time{}, r.err
	}
	return r.createdAt[tenantID+"/"+clientID], nil
}

type fakeDealerDirectory struct {
	ips map[string]string
	err error
}

func (r *fakeDealerDirectory) LastKnownIP(_ context.Context, dealerID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.ips[dealerID], nil
}

func (r *fakeDealerDirectory) RecordIP(_ context.Context, dealerID, ip string) error {
	if r.ips == nil {
		r.ips = make(map[string]string)
	}
	r.ips[dealerID] = ip
	return nil
}

type fakeSalesHistory struct {
	dealerStatuses []entity.VehicleStatus
	clientSales    int
	dealerErr      error
	clientErr      error
}

func (r *fakeSalesHistory) RecentDealerSaleStatuses(_ context.Context, _, _ string, limit int) ([]entity.VehicleStatus, error) {
	if r.dealerErr != nil {
		return nil, r.dealerErr
	}
	if len(r.dealerStatuses) > limit {
		return r.dealerStatuses[:limit], nil
	}
	return r.dealerStatuses, nil
}

func (r *fakeSalesHistory) ClientSaleCount(_ context.Context, _, _ string, _ int) (int, error) {
	if r.clientErr != nil {
		return 0, r.clientErr
	}
	return r.clientSales, nil
}

type fakeInventoryIndex struct {
	counts map[string]int
	err    error
}

func (r *fakeInventoryIndex) CountByVIN(_ context.Context, vin string) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.counts[vin], nil
}

type fakeEventSink struct {
	events     []outbound.VerificationEvent
	publishErr error
}

func (s *fakeEventSink) Publish(_ context.Context, event outbound.VerificationEvent) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *fakeEventSink) Close() error {
	return nil
}
