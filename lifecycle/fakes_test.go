package lifecycle

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mosquitoalert/mosquito-alert-api/classifier"
	"github.com/mosquitoalert/mosquito-alert-api/imagestore"
	"github.com/mosquitoalert/mosquito-alert-api/ledger"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// pngBytes is enough of a PNG for mimetype to recognise it
var pngBytes = []byte{
	0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

type memReports struct {
	mu        sync.Mutex
	reports   map[primitive.ObjectID]models.Report
	failWrite error
}

func newMemReports() *memReports {
	return &memReports{reports: map[primitive.ObjectID]models.Report{}}
}

func (m *memReports) Create(_ context.Context, r models.Report) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ImagePath == "" {
		return primitive.NilObjectID, models.NewValidationError("image", "image upload is required")
	}
	if m.failWrite != nil {
		return primitive.NilObjectID, m.failWrite
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	m.reports[r.ID] = r
	return r.ID, nil
}

func (m *memReports) FindByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (m *memReports) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.ReportState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	r, ok := m.reports[id]
	if !ok || r.State() != from {
		return models.ErrRejectedTransition
	}
	r.Status = to.Status
	r.PointsAwarded = to.PointsAwarded
	m.reports[id] = r
	return nil
}

func (m *memReports) Delete(_ context.Context, id primitive.ObjectID, expected models.ReportState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	r, ok := m.reports[id]
	if !ok || r.State() != expected {
		return models.ErrRejectedTransition
	}
	delete(m.reports, id)
	return nil
}

// lockstepReports holds every FindByID until n readers have arrived, so
// concurrent operations all plan from the same read
type lockstepReports struct {
	*memReports
	arrived sync.WaitGroup
}

func newLockstepReports(m *memReports, n int) *lockstepReports {
	l := &lockstepReports{memReports: m}
	l.arrived.Add(n)
	return l
}

func (l *lockstepReports) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	r, err := l.memReports.FindByID(ctx, id)
	l.arrived.Done()
	l.arrived.Wait()
	return r, err
}

func (m *memReports) put(r models.Report) models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	m.reports[r.ID] = r
	return r
}

func (m *memReports) snapshot() map[primitive.ObjectID]models.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[primitive.ObjectID]models.Report, len(m.reports))
	for k, v := range m.reports {
		out[k] = v
	}
	return out
}

func (m *memReports) restore(s map[primitive.ObjectID]models.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = s
}

// memAccounts keeps account records and their balances in a ledger.MemoryStore
type memAccounts struct {
	balances *ledger.MemoryStore
	accounts map[primitive.ObjectID]models.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{balances: ledger.NewMemoryStore(), accounts: map[primitive.ObjectID]models.Account{}}
}

func (m *memAccounts) add(role models.Role, points int) primitive.ObjectID {
	id := primitive.NewObjectID()
	m.accounts[id] = models.Account{ID: id, Role: role}
	m.balances.Open(id, points)
	return id
}

func (m *memAccounts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	acc.Points, _ = m.balances.Balance(id)
	return &acc, nil
}

func (m *memAccounts) points(id primitive.ObjectID) int {
	b, _ := m.balances.Balance(id)
	return b
}

// failingLedger wraps a store and fails every increment when err is set
type failingLedger struct {
	*ledger.MemoryStore
	err error
}

func (f *failingLedger) IncrementPoints(ctx context.Context, id primitive.ObjectID, delta int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.MemoryStore.IncrementPoints(ctx, id, delta)
}

// rollbackTransactor restores reports and balances when fn fails, like a
// multi document transaction would
type rollbackTransactor struct {
	reports  *memReports
	accounts *memAccounts
	calls    int
}

func (t *rollbackTransactor) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	t.calls++
	reports := t.reports.snapshot()
	balances := map[primitive.ObjectID]int{}
	for id := range t.accounts.accounts {
		balances[id] = t.accounts.points(id)
	}
	if err := fn(ctx); err != nil {
		t.reports.restore(reports)
		for id, b := range balances {
			t.accounts.balances.Open(id, b)
		}
		return err
	}
	return nil
}

type memImages struct {
	mu      sync.Mutex
	stored  map[string]bool
	removed []string
	err     error
}

func newMemImages() *memImages {
	return &memImages{stored: map[string]bool{}}
}

func (m *memImages) Put(_ context.Context, img imagestore.Image) (imagestore.Stored, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return imagestore.Stored{}, m.err
	}
	key := primitive.NewObjectID().Hex()
	m.stored[key] = true
	return imagestore.Stored{URL: "https://img.example.com/" + key + "." + img.Extension, Key: key}, nil
}

func (m *memImages) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, key)
	m.removed = append(m.removed, key)
	return nil
}

type stubClassifier struct {
	result classifier.Result
	calls  int
}

func (s *stubClassifier) Classify(context.Context, []byte) classifier.Result {
	s.calls++
	return s.result
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ReportEvent
}

func (r *recordingPublisher) Publish(ev models.ReportEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

var errStoreDown = errors.New("store down")
