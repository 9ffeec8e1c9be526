package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadtrail/leadtrail/internal/lead"
	"github.com/leadtrail/leadtrail/internal/metrics"
	"github.com/leadtrail/leadtrail/internal/registry"
	"github.com/leadtrail/leadtrail/internal/store/memory"
	"github.com/leadtrail/leadtrail/internal/vat"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

type capturePublisher struct{ events []lead.StageEvent }

func (p *capturePublisher) Publish(_ context.Context, e lead.StageEvent) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newDeps(store lead.Store, pub *capturePublisher) Deps {
	return Deps{
		Store:     store,
		IDs:       &seqIDs{},
		Clock:     fixedClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		Publisher: pub,
		Logger:    zap.NewNop(),
	}
}

func seedCompanies(t *testing.T, store *memory.Store, numbers ...string) []lead.CompanyNumber {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateCampaign(ctx, lead.Campaign{ID: "camp-1", Name: "Q1 outreach"}))
	added, err := store.AddCompanyNumbers(ctx, "camp-1", numbers)
	require.NoError(t, err)
	require.Equal(t, len(numbers), added)

	companies, err := store.UnprocessedForRegistry(ctx, len(numbers))
	require.NoError(t, err)
	require.Len(t, companies, len(numbers))
	return companies
}

func withRegistrySuccess(t *testing.T, store *memory.Store, companyID, name string) {
	t.Helper()
	err := store.SaveRegistryRecord(context.Background(), lead.RegistryRecord{
		ID:        "reg-" + companyID,
		CompanyID: companyID,
		Status:    lead.RegistrySuccess,
		Profile:   lead.RegistryProfile{CompanyName: name},
	})
	require.NoError(t, err)
}

func withVATRecord(t *testing.T, store *memory.Store, companyID, vatNumber string) {
	t.Helper()
	err := store.SaveVATRecord(context.Background(), lead.VATRecord{
		ID:        "vat-" + companyID,
		CompanyID: companyID,
		VATNumber: vatNumber,
		Status:    lead.VATSuccess,
	})
	require.NoError(t, err)
}

func withApprovedHunt(t *testing.T, store *memory.Store, companyID, domain string) {
	t.Helper()
	ctx := context.Background()
	huntID := "hunt-" + companyID
	err := store.SaveHuntRecord(ctx, lead.HuntRecord{
		ID:               huntID,
		CompanyID:        companyID,
		CandidateDomains: []string{domain},
		Status:           lead.HuntSuccess,
	})
	require.NoError(t, err)
	require.NoError(t, store.ApproveDomain(ctx, huntID, domain, "reviewer", time.Now()))
}

type fakeRegistry struct {
	results map[string]registry.Result
	calls   []string
}

func (f *fakeRegistry) Lookup(_ context.Context, number string) registry.Result {
	f.calls = append(f.calls, number)
	if r, ok := f.results[number]; ok {
		return r
	}
	return registry.Result{Status: lead.RegistryCompanyNotFound, Message: "not found"}
}

func TestRegistryTaskWritesRecordForEveryCompany(t *testing.T) {
	store := memory.New()
	companies := seedCompanies(t, store, "12345678", "00000001")
	pub := &capturePublisher{}

	client := &fakeRegistry{results: map[string]registry.Result{
		"12345678": {Status: lead.RegistrySuccess, Profile: lead.RegistryProfile{CompanyName: "Acme Ltd"}},
	}}
	task := NewRegistryTask(newDeps(store, pub), client, Schedule{}, 0)
	var pauses int
	task.pause = func(context.Context, time.Duration) error {
		pauses++
		return nil
	}

	require.NoError(t, task.Run(context.Background()))

	assert.Equal(t, []string{"12345678", "00000001"}, client.calls)
	assert.Equal(t, 1, pauses, "one pause between two companies")

	remaining, err := store.UnprocessedForRegistry(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining, "failures get a record too")

	require.Len(t, pub.events, 2)
	assert.Equal(t, companies[0].ID, pub.events[0].CompanyID)
	assert.Equal(t, lead.StageRegistry, pub.events[0].Stage)
	assert.Equal(t, string(lead.RegistrySuccess), pub.events[0].Status)
	assert.Equal(t, string(lead.RegistryCompanyNotFound), pub.events[1].Status)
}

func TestRegistryTaskStopsWhenPauseCancelled(t *testing.T) {
	store := memory.New()
	seedCompanies(t, store, "12345678", "00000001")

	task := NewRegistryTask(newDeps(store, &capturePublisher{}), &fakeRegistry{}, Schedule{}, 0)
	task.pause = func(context.Context, time.Duration) error { return context.Canceled }

	err := task.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)

	remaining, listErr := store.UnprocessedForRegistry(context.Background(), 10)
	require.NoError(t, listErr)
	assert.Len(t, remaining, 1, "second company stays unprocessed")
}

func TestRegistryTaskNoopWithoutCompanies(t *testing.T) {
	store := memory.New()
	client := &fakeRegistry{}
	task := NewRegistryTask(newDeps(store, &capturePublisher{}), client, Schedule{}, 0)

	require.NoError(t, task.Run(context.Background()))
	assert.Empty(t, client.calls)
}

type fakeVAT struct {
	result vat.Result
	calls  []string
}

func (f *fakeVAT) Lookup(_ context.Context, companyName string) vat.Result {
	f.calls = append(f.calls, companyName)
	return f.result
}

func TestVATTaskOnlyProcessesRegistrySuccesses(t *testing.T) {
	store := memory.New()
	companies := seedCompanies(t, store, "12345678", "00000001")
	withRegistrySuccess(t, store, companies[0].ID, "Acme Ltd")
	require.NoError(t, store.SaveRegistryRecord(context.Background(), lead.RegistryRecord{
		ID:        "reg-fail",
		CompanyID: companies[1].ID,
		Status:    lead.RegistryAPIError,
	}))

	pub := &capturePublisher{}
	client := &fakeVAT{result: vat.Result{
		Status:      lead.VATSuccess,
		VATNumber:   "GB123456789",
		MatchedName: "ACME LTD",
		SearchTerms: []string{"Acme Ltd"},
	}}
	task := NewVATTask(newDeps(store, pub), client, Schedule{})

	require.NoError(t, task.Run(context.Background()))

	assert.Equal(t, []string{"Acme Ltd"}, client.calls)
	require.Len(t, pub.events, 1)
	assert.Equal(t, companies[0].ID, pub.events[0].CompanyID)
	assert.Equal(t, lead.StageVAT, pub.events[0].Stage)
	assert.Equal(t, string(lead.VATSuccess), pub.events[0].Status)

	remaining, err := store.UnprocessedForVAT(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
