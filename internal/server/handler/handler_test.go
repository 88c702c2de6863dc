package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeRegistry struct {
	products    map[string]domain.Product
	registerErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{products: make(map[string]domain.Product)}
}

func (f *fakeRegistry) Register(name string, refs map[domain.Marketplace]string) (domain.Product, bool, error) {
	if f.registerErr != nil {
		return domain.Product{}, false, f.registerErr
	}
	for _, p := range f.products {
		if p.Name == name {
			return p, false, nil
		}
	}
	p := domain.Product{
		ID:        fmt.Sprintf("p-%d", len(f.products)+1),
		Name:      name,
		Refs:      refs,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	f.products[p.ID] = p
	return p, true, nil
}

func (f *fakeRegistry) Deactivate(id string) error {
	p, ok := f.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = false
	f.products[id] = p
	return nil
}

func (f *fakeRegistry) Get(id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeRegistry) List(activeOnly bool) []domain.Product {
	var out []domain.Product
	for _, p := range f.products {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out
}

type triggerCall struct {
	productID  string
	provenance string
}

type fakeScans struct {
	calls      []triggerCall
	started    bool
	triggerErr error
	report     domain.ScanReport
	hasReport  bool
}

func (f *fakeScans) Trigger(productID, provenance string) (bool, error) {
	if f.triggerErr != nil {
		return false, f.triggerErr
	}
	f.calls = append(f.calls, triggerCall{productID, provenance})
	return f.started, nil
}

func (f *fakeScans) LastReport(productID string) (domain.ScanReport, bool) {
	return f.report, f.hasReport
}

type fakeHistory struct {
	points    []domain.PricePoint
	lastSince time.Time
}

func (f *fakeHistory) Series(productID string, marketplace domain.Marketplace, since time.Time) []domain.PricePoint {
	f.lastSince = since
	return f.points
}

type fakeEvictor struct {
	evicted []string
}

func (f *fakeEvictor) Evict(productID string) {
	f.evicted = append(f.evicted, productID)
}

type fakeIntake struct {
	outcome domain.NotificationOutcome
	last    domain.Notification
	counts  map[domain.NotificationOutcome]int
	records []domain.NotificationRecord
}

func (f *fakeIntake) Handle(n domain.Notification) domain.NotificationOutcome {
	f.last = n
	return f.outcome
}

func (f *fakeIntake) Counts() map[domain.NotificationOutcome]int { return f.counts }

func (f *fakeIntake) Records(limit int) []domain.NotificationRecord {
	if limit < len(f.records) {
		return f.records[:limit]
	}
	return f.records
}

type fakeCache struct {
	opps  []domain.Opportunity
	byID  map[string]domain.Opportunity
	stats domain.Stats
}

func (f *fakeCache) List() []domain.Opportunity { return append([]domain.Opportunity(nil), f.opps...) }

func (f *fakeCache) Get(productID string) (domain.Opportunity, bool) {
	o, ok := f.byID[productID]
	return o, ok
}

func (f *fakeCache) Stats() domain.Stats { return f.stats }

func newProductHandler(reg ProductRegistry, scans ScanTrigger, history HistorySource, evictor OpportunityEvictor) *ProductHandler {
	return NewProductHandler(reg, scans, history, evictor, testLogger())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return body
}

func TestRegisterCreatesAndTriggersInitialScan(t *testing.T) {
	reg := newFakeRegistry()
	scans := &fakeScans{started: true}
	h := newProductHandler(reg, scans, &fakeHistory{}, &fakeEvictor{})

	payload := `{"name":"Widget","refs":{"amazon":"https://amazon.com/dp/W1","bestbuy":"https://bestbuy.com/site/W1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(scans.calls) != 1 {
		t.Fatalf("scan trigger calls = %d, want 1", len(scans.calls))
	}
	if scans.calls[0].provenance != "register" {
		t.Errorf("provenance = %q, want %q", scans.calls[0].provenance, "register")
	}
	body := decodeBody(t, rec)
	if body["name"] != "Widget" {
		t.Errorf("name = %v, want Widget", body["name"])
	}
}

func TestRegisterIdempotentReplayAnswers200(t *testing.T) {
	reg := newFakeRegistry()
	scans := &fakeScans{started: true}
	h := newProductHandler(reg, scans, &fakeHistory{}, &fakeEvictor{})

	payload := `{"name":"Widget","refs":{"amazon":"a","bestbuy":"b"}}`
	for i, want := range []int{http.StatusCreated, http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		h.Register(rec, req)
		if rec.Code != want {
			t.Fatalf("register #%d status = %d, want %d", i+1, rec.Code, want)
		}
	}
	if len(scans.calls) != 1 {
		t.Errorf("scan trigger calls = %d, want 1 (replay must not rescan)", len(scans.calls))
	}
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		registerErr error
		wantStatus  int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"missing name", `{"refs":{"amazon":"a","bestbuy":"b"}}`, nil, http.StatusBadRequest},
		{"too few refs", `{"name":"X","refs":{"amazon":"a"}}`, domain.ErrInvalidReference, http.StatusBadRequest},
		{"ref already tracked", `{"name":"X","refs":{"amazon":"a","bestbuy":"b"}}`, domain.ErrDuplicateSource, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newFakeRegistry()
			reg.registerErr = tt.registerErr
			h := newProductHandler(reg, &fakeScans{}, &fakeHistory{}, &fakeEvictor{})
			req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Register(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestDeactivateEvictsOpportunity(t *testing.T) {
	reg := newFakeRegistry()
	p, _, _ := reg.Register("Widget", map[domain.Marketplace]string{"amazon": "a", "bestbuy": "b"})
	evictor := &fakeEvictor{}
	h := newProductHandler(reg, &fakeScans{}, &fakeHistory{}, evictor)

	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+p.ID, nil)
	req.SetPathValue("id", p.ID)
	rec := httptest.NewRecorder()
	h.Deactivate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(evictor.evicted) != 1 || evictor.evicted[0] != p.ID {
		t.Errorf("evicted = %v, want [%s]", evictor.evicted, p.ID)
	}
	if got, _ := reg.Get(p.ID); got.Active {
		t.Error("product still active after deactivate")
	}
}

func TestDeactivateUnknownProduct(t *testing.T) {
	h := newProductHandler(newFakeRegistry(), &fakeScans{}, &fakeHistory{}, &fakeEvictor{})
	req := httptest.NewRequest(http.MethodDelete, "/api/products/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.Deactivate(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHistoryRequiresMarketplace(t *testing.T) {
	reg := newFakeRegistry()
	p, _, _ := reg.Register("Widget", map[domain.Marketplace]string{"amazon": "a", "bestbuy": "b"})
	h := newProductHandler(reg, &fakeScans{}, &fakeHistory{}, &fakeEvictor{})

	req := httptest.NewRequest(http.MethodGet, "/api/products/"+p.ID+"/history", nil)
	req.SetPathValue("id", p.ID)
	rec := httptest.NewRecorder()
	h.History(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHistoryAppliesSinceAndLimit(t *testing.T) {
	reg := newFakeRegistry()
	p, _, _ := reg.Register("Widget", map[domain.Marketplace]string{"amazon": "a", "bestbuy": "b"})

	history := &fakeHistory{}
	for i := range 5 {
		history.points = append(history.points, domain.PricePoint{
			ID:          fmt.Sprintf("pp-%d", i),
			ProductID:   p.ID,
			Marketplace: "amazon",
			Price:       decimal.NewFromInt(int64(20 + i)),
		})
	}
	h := newProductHandler(reg, &fakeScans{}, history, &fakeEvictor{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/products/"+p.ID+"/history?marketplace=amazon&since=2026-08-01T00:00:00Z&limit=2", nil)
	req.SetPathValue("id", p.ID)
	rec := httptest.NewRecorder()
	h.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !history.lastSince.Equal(want) {
		t.Errorf("since passed = %v, want %v", history.lastSince, want)
	}

	var body struct {
		Points []domain.PricePoint `json:"points"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Points) != 2 {
		t.Fatalf("points = %d, want 2 (last-N limit)", len(body.Points))
	}
	if body.Points[0].ID != "pp-3" || body.Points[1].ID != "pp-4" {
		t.Errorf("limit kept %s,%s, want the newest two pp-3,pp-4", body.Points[0].ID, body.Points[1].ID)
	}
}

func TestHistoryRejectsBadSince(t *testing.T) {
	reg := newFakeRegistry()
	p, _, _ := reg.Register("Widget", map[domain.Marketplace]string{"amazon": "a", "bestbuy": "b"})
	h := newProductHandler(reg, &fakeScans{}, &fakeHistory{}, &fakeEvictor{})

	req := httptest.NewRequest(http.MethodGet, "/api/products/"+p.ID+"/history?marketplace=amazon&since=yesterday", nil)
	req.SetPathValue("id", p.ID)
	rec := httptest.NewRecorder()
	h.History(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTriggerScanOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		triggerErr error
		started    bool
		wantStatus int
	}{
		{"started", nil, true, http.StatusAccepted},
		{"coalesced", nil, false, http.StatusAccepted},
		{"unknown product", domain.ErrNotFound, false, http.StatusNotFound},
		{"inactive product", domain.ErrInactive, false, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scans := &fakeScans{started: tt.started, triggerErr: tt.triggerErr}
			h := newProductHandler(newFakeRegistry(), scans, &fakeHistory{}, &fakeEvictor{})
			req := httptest.NewRequest(http.MethodPost, "/api/products/p-1/scan", nil)
			req.SetPathValue("id", "p-1")
			rec := httptest.NewRecorder()
			h.TriggerScan(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.triggerErr == nil {
				body := decodeBody(t, rec)
				if body["started"] != tt.started {
					t.Errorf("started = %v, want %v", body["started"], tt.started)
				}
			}
		})
	}
}

func TestLastScan(t *testing.T) {
	reg := newFakeRegistry()
	p, _, _ := reg.Register("Widget", map[domain.Marketplace]string{"amazon": "a", "bestbuy": "b"})

	scans := &fakeScans{}
	h := newProductHandler(reg, scans, &fakeHistory{}, &fakeEvictor{})
	req := httptest.NewRequest(http.MethodGet, "/api/products/"+p.ID+"/scan", nil)
	req.SetPathValue("id", p.ID)
	rec := httptest.NewRecorder()
	h.LastScan(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status with no report = %d, want %d", rec.Code, http.StatusNotFound)
	}

	scans.hasReport = true
	scans.report = domain.ScanReport{ScanID: "s-1", ProductID: p.ID}
	rec = httptest.NewRecorder()
	h.LastScan(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody(t, rec)
	if body["scan_id"] != "s-1" {
		t.Errorf("scan_id = %v, want s-1", body["scan_id"])
	}
}

func TestScanAllTriggersActiveProducts(t *testing.T) {
	reg := newFakeRegistry()
	reg.Register("A", map[domain.Marketplace]string{"amazon": "a1", "bestbuy": "b1"})
	reg.Register("B", map[domain.Marketplace]string{"amazon": "a2", "bestbuy": "b2"})
	c, _, _ := reg.Register("C", map[domain.Marketplace]string{"amazon": "a3", "bestbuy": "b3"})
	reg.Deactivate(c.ID)

	scans := &fakeScans{started: true}
	h := newProductHandler(reg, scans, &fakeHistory{}, &fakeEvictor{})
	req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
	rec := httptest.NewRecorder()
	h.ScanAll(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if len(scans.calls) != 2 {
		t.Fatalf("triggered = %d products, want 2 active", len(scans.calls))
	}
	for _, call := range scans.calls {
		if call.productID == c.ID {
			t.Errorf("inactive product %s was scanned", c.ID)
		}
		if call.provenance != "manual" {
			t.Errorf("provenance = %q, want manual", call.provenance)
		}
	}
}

func TestHandleChangeStatusByOutcome(t *testing.T) {
	tests := []struct {
		outcome    domain.NotificationOutcome
		wantStatus int
	}{
		{domain.OutcomeAccepted, http.StatusAccepted},
		{domain.OutcomeCoalesced, http.StatusAccepted},
		{domain.OutcomeDuplicate, http.StatusOK},
		{domain.OutcomeStale, http.StatusOK},
		{domain.OutcomeUnresolved, http.StatusOK},
		{domain.OutcomeIgnored, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			intake := &fakeIntake{outcome: tt.outcome}
			h := NewWebhookHandler(intake, testLogger())
			payload := `{"source_id":"mon-1","page_reference":"https://amazon.com/dp/W1","change_detected":true,"timestamp":"2026-08-28T10:00:00Z"}`
			req := httptest.NewRequest(http.MethodPost, "/api/webhooks/change", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			h.HandleChange(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeBody(t, rec)
			if body["status"] != string(tt.outcome) {
				t.Errorf("status field = %v, want %s", body["status"], tt.outcome)
			}
		})
	}
}

func TestHandleChangePassesTimestamp(t *testing.T) {
	intake := &fakeIntake{outcome: domain.OutcomeAccepted}
	h := NewWebhookHandler(intake, testLogger())

	payload := `{"source_id":"mon-1","page_reference":"ref","change_detected":true,"timestamp":"2026-08-28T10:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/change", strings.NewReader(payload))
	h.HandleChange(httptest.NewRecorder(), req)

	want := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	if !intake.last.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", intake.last.Timestamp, want)
	}
	if !intake.last.ChangeDetected {
		t.Error("change_detected not forwarded")
	}
}

func TestHandleChangeDefaultsTimestampToNow(t *testing.T) {
	intake := &fakeIntake{outcome: domain.OutcomeAccepted}
	h := NewWebhookHandler(intake, testLogger())

	before := time.Now().UTC()
	payload := `{"source_id":"mon-1","page_reference":"ref","change_detected":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/change", strings.NewReader(payload))
	h.HandleChange(httptest.NewRecorder(), req)

	if intake.last.Timestamp.Before(before) || intake.last.Timestamp.After(time.Now().UTC()) {
		t.Errorf("defaulted timestamp %v not within call window", intake.last.Timestamp)
	}
}

func TestHandleChangeRejectsBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{source`},
		{"missing source_id", `{"page_reference":"ref","change_detected":true}`},
		{"missing page_reference", `{"source_id":"mon-1","change_detected":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler(&fakeIntake{}, testLogger())
			req := httptest.NewRequest(http.MethodPost, "/api/webhooks/change", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleChange(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestListRecords(t *testing.T) {
	intake := &fakeIntake{
		records: []domain.NotificationRecord{
			{SourceID: "mon-2", Outcome: domain.OutcomeAccepted},
			{SourceID: "mon-1", Outcome: domain.OutcomeDuplicate},
		},
	}
	h := NewWebhookHandler(intake, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/webhooks/records?limit=1", nil)
	rec := httptest.NewRecorder()
	h.ListRecords(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Records []domain.NotificationRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Records) != 1 || body.Records[0].SourceID != "mon-2" {
		t.Errorf("records = %+v, want just mon-2", body.Records)
	}
}

func opp(id string, net int64, risk float64) domain.Opportunity {
	return domain.Opportunity{
		ProductID: id,
		NetMargin: decimal.NewFromInt(net),
		RiskScore: risk,
	}
}

func TestOpportunityListFilters(t *testing.T) {
	cache := &fakeCache{
		opps: []domain.Opportunity{
			opp("p-1", 30, 8.0),
			opp("p-2", 12, 4.5),
			opp("p-3", 3, 2.0),
		},
	}
	h := NewOpportunityHandler(cache, &fakeIntake{}, testLogger())

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"no filter", "", []string{"p-1", "p-2", "p-3"}},
		{"min margin", "?min_margin=10", []string{"p-1", "p-2"}},
		{"max risk", "?max_risk=5", []string{"p-2", "p-3"}},
		{"both", "?min_margin=10&max_risk=5", []string{"p-2"}},
		{"none match", "?min_margin=100", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/opportunities"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.List(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			var body struct {
				Opportunities []domain.Opportunity `json:"opportunities"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Opportunities) != len(tt.wantIDs) {
				t.Fatalf("got %d opportunities, want %d", len(body.Opportunities), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if body.Opportunities[i].ProductID != want {
					t.Errorf("opportunities[%d] = %s, want %s", i, body.Opportunities[i].ProductID, want)
				}
			}
		})
	}
}

func TestOpportunityGet(t *testing.T) {
	cache := &fakeCache{byID: map[string]domain.Opportunity{"p-1": opp("p-1", 12, 4.0)}}
	h := NewOpportunityHandler(cache, &fakeIntake{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/products/p-1/opportunity", nil)
	req.SetPathValue("id", "p-1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/products/p-2/opportunity", nil)
	req.SetPathValue("id", "p-2")
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for missing opportunity = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStatsIncludesIntakeCounts(t *testing.T) {
	cache := &fakeCache{
		stats: domain.Stats{
			TrackedProducts:  4,
			Opportunities:    2,
			AverageNetMargin: decimal.NewFromInt(21),
			BestNetMargin:    decimal.NewFromInt(30),
		},
	}
	intake := &fakeIntake{counts: map[domain.NotificationOutcome]int{
		domain.OutcomeAccepted:  7,
		domain.OutcomeDuplicate: 3,
	}}
	h := NewOpportunityHandler(cache, intake, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody(t, rec)
	if body["tracked_product_count"] != float64(4) {
		t.Errorf("tracked_product_count = %v, want 4", body["tracked_product_count"])
	}
	if body["opportunity_count"] != float64(2) {
		t.Errorf("opportunity_count = %v, want 2", body["opportunity_count"])
	}
	notifications, ok := body["notifications"].(map[string]any)
	if !ok {
		t.Fatalf("notifications missing from stats: %v", body)
	}
	if notifications["accepted"] != float64(7) {
		t.Errorf("accepted count = %v, want 7", notifications["accepted"])
	}
}
