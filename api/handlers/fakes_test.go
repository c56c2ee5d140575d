package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mosquitoalert/mosquito-alert-api/access"
	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/classifier"
	"github.com/mosquitoalert/mosquito-alert-api/imagestore"
	"github.com/mosquitoalert/mosquito-alert-api/ledger"
	"github.com/mosquitoalert/mosquito-alert-api/lifecycle"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// pngBytes is enough of a PNG for mimetype to recognise it
var pngBytes = []byte{
	0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

// fakeUserDB is an in-memory databases.UserDatabase
type fakeUserDB struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.Account
}

func newFakeUserDB() *fakeUserDB {
	return &fakeUserDB{users: map[primitive.ObjectID]models.Account{}}
}

func (f *fakeUserDB) add(name string, role models.Role, points int) models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc := models.Account{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Role:      role,
		Points:    points,
		CreatedAt: time.Now().UTC(),
	}
	f.users[acc.ID] = acc
	return acc
}

func (f *fakeUserDB) points(id primitive.ObjectID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].Points
}

func (f *fakeUserDB) Create(_ context.Context, account models.Account) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.Email = strings.ToLower(account.Email)
	for _, u := range f.users {
		if u.Email == account.Email {
			return primitive.NilObjectID, models.NewValidationError("email", "user already exists")
		}
	}
	account.ID = primitive.NewObjectID()
	f.users[account.ID] = account
	return account.ID, nil
}

func (f *fakeUserDB) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserDB) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserDB) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.AccountSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID]models.AccountSummary{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = models.AccountSummary{ID: u.ID, Name: u.Name, Email: u.Email, Points: u.Points}
		}
	}
	return out, nil
}

func (f *fakeUserDB) List(context.Context) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Account{}
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserDB) TopByPoints(_ context.Context, limit int64) ([]models.AccountSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	top := []models.AccountSummary{}
	for _, u := range f.users {
		if u.Role == models.RoleUser {
			top = append(top, models.AccountSummary{ID: u.ID, Name: u.Name, Email: u.Email, Points: u.Points})
		}
	}
	sort.Slice(top, func(i, j int) bool { return top[i].Points > top[j].Points })
	if int64(len(top)) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (f *fakeUserDB) IncrementPoints(_ context.Context, id primitive.ObjectID, delta int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	u.Points = ledger.Clamp(u.Points, delta)
	f.users[id] = u
	return u.Points, nil
}

func (f *fakeUserDB) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Password = hash
	f.users[id] = u
	return nil
}

func (f *fakeUserDB) Count(context.Context, interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

// fakeReportDB is an in-memory databases.ReportDatabase
type fakeReportDB struct {
	mu      sync.Mutex
	reports map[primitive.ObjectID]models.Report

	// arguments of the last FindPage call
	pageLimit, page int
}

func newFakeReportDB() *fakeReportDB {
	return &fakeReportDB{reports: map[primitive.ObjectID]models.Report{}}
}

func (f *fakeReportDB) put(r models.Report) models.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = primitive.NewObjectID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.ImagePath == "" {
		r.ImagePath = "https://img.example.com/" + r.ID.Hex() + ".png"
	}
	f.reports[r.ID] = r
	return r
}

func (f *fakeReportDB) get(id primitive.ObjectID) (models.Report, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	return r, ok
}

func (f *fakeReportDB) Create(_ context.Context, r models.Report) (primitive.ObjectID, error) {
	if r.ImagePath == "" {
		return primitive.NilObjectID, models.NewValidationError("image", "image upload is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	f.reports[r.ID] = r
	return r.ID, nil
}

func (f *fakeReportDB) FindByID(_ context.Context, id primitive.ObjectID) (*models.Report, error) {
	r, ok := f.get(id)
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (f *fakeReportDB) sorted(keep func(models.Report) bool) []models.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Report{}
	for _, r := range f.reports {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeReportDB) FindByOwner(_ context.Context, ownerID primitive.ObjectID) ([]models.Report, error) {
	return f.sorted(func(r models.Report) bool { return r.UserID == ownerID }), nil
}

func (f *fakeReportDB) FindAll(context.Context) ([]models.Report, error) {
	return f.sorted(func(models.Report) bool { return true }), nil
}

func (f *fakeReportDB) FindPage(_ context.Context, limit, page int) ([]models.Report, error) {
	f.mu.Lock()
	f.pageLimit, f.page = limit, page
	f.mu.Unlock()
	all := f.sorted(func(models.Report) bool { return true })
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Report{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeReportDB) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.ReportState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok || r.State() != from {
		return models.ErrRejectedTransition
	}
	r.Status = to.Status
	r.PointsAwarded = to.PointsAwarded
	f.reports[id] = r
	return nil
}

func (f *fakeReportDB) Delete(_ context.Context, id primitive.ObjectID, expected models.ReportState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok || r.State() != expected {
		return models.ErrRejectedTransition
	}
	delete(f.reports, id)
	return nil
}

func (f *fakeReportDB) Count(context.Context, interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.reports)), nil
}

type fakeImages struct{}

func (fakeImages) Put(_ context.Context, img imagestore.Image) (imagestore.Stored, error) {
	key := primitive.NewObjectID().Hex()
	return imagestore.Stored{URL: "https://img.example.com/" + key + "." + img.Extension, Key: key}, nil
}

func (fakeImages) Remove(context.Context, string) error { return nil }

type stubGateway struct {
	result classifier.Result
}

func (s stubGateway) Classify(context.Context, []byte) classifier.Result {
	return s.result
}

// fixture wires the report handler to in-memory stores
type fixture struct {
	users   *fakeUserDB
	reports *fakeReportDB
	engine  *lifecycle.Engine
}

func newFixture(t *testing.T, policy lifecycle.Policy, gateway lifecycle.Classifier) *fixture {
	t.Helper()
	users := newFakeUserDB()
	reports := newFakeReportDB()
	engine, err := lifecycle.New(policy, 5<<20, lifecycle.Deps{
		Reports:    reports,
		Accounts:   users,
		Ledger:     ledger.New(users),
		Classifier: gateway,
		Images:     fakeImages{},
	})
	require.NoError(t, err)
	return &fixture{users: users, reports: reports, engine: engine}
}

func actorFor(acc models.Account) *access.Actor {
	return &access.Actor{ID: acc.ID, Name: acc.Name, Email: acc.Email, Role: acc.Role}
}

// asActor attaches actor and route vars the way the router and middleware would
func asActor(req *http.Request, actor *access.Actor, vars map[string]string) *http.Request {
	if actor != nil {
		req = req.WithContext(api.WithActor(req.Context(), actor))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

// multipartRequest builds a report form; image is skipped when nil
func multipartRequest(t *testing.T, url string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "site.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
