package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/lendfast/dealready/internal/deal/entity"
	"github.com/lendfast/dealready/internal/pkg/clock"
	"github.com/lendfast/dealready/internal/pkg/config"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/jwt"
	"github.com/lendfast/dealready/internal/pkg/storage"
	"github.com/lendfast/dealready/internal/pkg/validator"
)

type memoryDB struct {
	deals       map[string]entity.Deal
	submissions map[int64]entity.Submission
	documents   map[int64]entity.Document
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		deals:       map[string]entity.Deal{},
		submissions: map[int64]entity.Submission{},
		documents:   map[int64]entity.Document{},
	}
}

func (m *memoryDB) CreateDeal(ctx context.Context, d entity.Deal) error {
	m.deals[d.ID] = d
	return nil
}

func (m *memoryDB) GetDealByID(ctx context.Context, id string) (*entity.Deal, error) {
	d, ok := m.deals[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &d, nil
}

func (m *memoryDB) ListDealsByOwner(ctx context.Context, ownerID string, f entity.ListFilter) ([]entity.Deal, int64, error) {
	var out []entity.Deal
	for _, d := range m.deals {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryDB) ListDeals(ctx context.Context, f entity.ListFilter) ([]entity.Deal, int64, error) {
	var out []entity.Deal
	for _, d := range m.deals {
		out = append(out, d)
	}
	return out, int64(len(out)), nil
}

func (m *memoryDB) UpdateDeal(ctx context.Context, id string, patch entity.DealPatch) error {
	d, ok := m.deals[id]
	if !ok {
		return goerror.ErrNotFound
	}
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.BorrowerName != nil {
		d.BorrowerName = *patch.BorrowerName
	}
	if patch.Stage != nil {
		d.Stage = *patch.Stage
	}
	if patch.AmountCents != nil {
		d.AmountCents = *patch.AmountCents
	}
	m.deals[id] = d
	return nil
}

func (m *memoryDB) CreateSubmission(ctx context.Context, s entity.Submission) error {
	m.submissions[s.ID] = s
	return nil
}

func (m *memoryDB) GetSubmissionByID(ctx context.Context, id int64) (*entity.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &s, nil
}

func (m *memoryDB) ListSubmissionsByDeal(ctx context.Context, dealID string, f entity.ListFilter) ([]entity.Submission, int64, error) {
	var out []entity.Submission
	for _, s := range m.submissions {
		if s.DealID == dealID {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryDB) ListSubmissions(ctx context.Context, f entity.ListFilter) ([]entity.Submission, int64, error) {
	var out []entity.Submission
	for _, s := range m.submissions {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (m *memoryDB) CreateDocument(ctx context.Context, d entity.Document) error {
	m.documents[d.ID] = d
	return nil
}

func (m *memoryDB) GetDocumentByID(ctx context.Context, id int64) (*entity.Document, error) {
	d, ok := m.documents[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &d, nil
}

func (m *memoryDB) ListDocumentsByDeal(ctx context.Context, dealID string) ([]entity.Document, error) {
	var out []entity.Document
	for _, d := range m.documents {
		if d.DealID == dealID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeStore struct {
	uploads map[string][]byte
	presign map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string][]byte{}, presign: map[string]string{}}
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) Upload(ctx context.Context, bucket, key string, r io.Reader, opts storage.UploadOptions) (storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	f.uploads[bucket+"/"+key] = data
	return storage.Object{Bucket: bucket, Key: key, Size: int64(len(data)), ContentType: opts.ContentType}, nil
}

func (f *fakeStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, storage.Object, error) {
	return nil, storage.Object{}, errors.New("not implemented")
}

func (f *fakeStore) Stat(ctx context.Context, bucket, key string) (storage.Object, error) {
	return storage.Object{}, errors.New("not implemented")
}

func (f *fakeStore) Delete(ctx context.Context, bucket, key string) error { return nil }

func (f *fakeStore) List(ctx context.Context, bucket, prefix string, limit int32) ([]storage.Object, error) {
	return nil, nil
}

func (f *fakeStore) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	url := "https://signed.example.com/" + bucket + "/" + key
	f.presign[bucket+"/"+key] = url
	return url, nil
}

func (f *fakeStore) PresignPut(ctx context.Context, bucket, key string, opts storage.UploadOptions, expiry time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

type seqStringID struct {
	n int
}

func (s *seqStringID) Generate() string {
	s.n++
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", s.n)
}

type seqNumberID struct {
	n int64
}

func (s *seqNumberID) Generate() int64 {
	s.n++
	return s.n
}

type stubConfig struct {
	config.Config
}

func (stubConfig) GetString(key string) string        { return "dealready-documents" }
func (stubConfig) GetMinute(key string) time.Duration { return 15 * time.Minute }

func newTestUsecase(t *testing.T, repo repoDB, store storage.Store) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	return New(Dependency{
		RepoDB:     repo,
		Storage:    store,
		Validator:  v,
		Config:     stubConfig{},
		UUID:       &seqStringID{},
		UID:        &seqNumberID{},
		Clock:      clock.New(),
		Instrument: instrument.NewNoop(),
	})
}

func authedContext(userID string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: userID},
		AAL:              jwt.AAL2,
	})
}

func TestDealCreateListsOnlyOwnDeals(t *testing.T) {
	repo := newMemoryDB()
	uc := newTestUsecase(t, repo, newFakeStore())

	created, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Main Street refi"})
	if err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}
	if created.Deal.Stage != "draft" {
		t.Errorf("Stage = %q, want draft", created.Deal.Stage)
	}

	if _, err := uc.DealCreate(authedContext("broker-2"), DealCreateInput{Name: "Elsewhere"}); err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}

	out, err := uc.DealList(authedContext("broker-1"), DealListInput{})
	if err != nil {
		t.Fatalf("DealList() error = %v", err)
	}
	if len(out.Deals) != 1 || out.Deals[0].Name != "Main Street refi" {
		t.Errorf("Deals = %+v, want only broker-1's deal", out.Deals)
	}
}

func TestDealDetailHidesOtherOwners(t *testing.T) {
	repo := newMemoryDB()
	uc := newTestUsecase(t, repo, newFakeStore())

	created, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Main Street refi"})
	if err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}

	_, err = uc.DealDetail(authedContext("broker-2"), DealDetailInput{DealID: created.Deal.ID})
	if err == nil {
		t.Fatal("DealDetail() error = nil, want not found for a foreign deal")
	}

	var gerr *goerror.Error
	if !errors.As(err, &gerr) || gerr.Code() != goerror.CodeNotFound {
		t.Errorf("error = %v, want CodeNotFound", err)
	}
}

func TestDealUpdatePatchesFields(t *testing.T) {
	repo := newMemoryDB()
	uc := newTestUsecase(t, repo, newFakeStore())

	created, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Main Street refi"})
	if err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}

	stage := "submitted"
	out, err := uc.DealUpdate(authedContext("broker-1"), DealUpdateInput{
		DealID: created.Deal.ID,
		Stage:  &stage,
	})
	if err != nil {
		t.Fatalf("DealUpdate() error = %v", err)
	}

	if out.Deal.Stage != "submitted" {
		t.Errorf("Stage = %q, want submitted", out.Deal.Stage)
	}
	if out.Deal.Name != "Main Street refi" {
		t.Errorf("Name = %q, unpatched field changed", out.Deal.Name)
	}
}

func TestSubmissionCreateChecksDealOwnership(t *testing.T) {
	repo := newMemoryDB()
	uc := newTestUsecase(t, repo, newFakeStore())

	created, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Main Street refi"})
	if err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}

	if _, err := uc.SubmissionCreate(authedContext("broker-2"), SubmissionCreateInput{
		DealID:     created.Deal.ID,
		LenderName: "First Bank",
	}); err == nil {
		t.Fatal("SubmissionCreate() error = nil, want not found for a foreign deal")
	}

	out, err := uc.SubmissionCreate(authedContext("broker-1"), SubmissionCreateInput{
		DealID:     created.Deal.ID,
		LenderName: "First Bank",
	})
	if err != nil {
		t.Fatalf("SubmissionCreate() error = %v", err)
	}
	if out.Submission.Status != "submitted" {
		t.Errorf("Status = %q, want submitted", out.Submission.Status)
	}
}

func TestDocumentUploadStoresUnderDealPrefix(t *testing.T) {
	repo := newMemoryDB()
	store := newFakeStore()
	uc := newTestUsecase(t, repo, store)

	created, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Main Street refi"})
	if err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}

	out, err := uc.DocumentUpload(authedContext("broker-1"), DocumentUploadInput{
		DealID:      created.Deal.ID,
		FileName:    "rent-roll.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("DocumentUpload() error = %v", err)
	}

	wantPrefix := "deals/" + created.Deal.ID + "/"
	if !strings.HasPrefix(out.Document.StorageKey, wantPrefix) {
		t.Errorf("StorageKey = %q, want prefix %q", out.Document.StorageKey, wantPrefix)
	}
	if out.Document.SizeBytes != int64(len("pdf bytes")) {
		t.Errorf("SizeBytes = %d, want %d", out.Document.SizeBytes, len("pdf bytes"))
	}
	if _, ok := store.uploads["dealready-documents/"+out.Document.StorageKey]; !ok {
		t.Errorf("uploads = %v, object not stored", store.uploads)
	}

	link, err := uc.DocumentURL(authedContext("broker-1"), DocumentURLInput{
		DealID:     created.Deal.ID,
		DocumentID: out.Document.ID,
	})
	if err != nil {
		t.Fatalf("DocumentURL() error = %v", err)
	}
	if !strings.Contains(link.URL, out.Document.StorageKey) {
		t.Errorf("URL = %q, want it to reference %q", link.URL, out.Document.StorageKey)
	}
}

func TestDocumentURLWrongDealNotFound(t *testing.T) {
	repo := newMemoryDB()
	uc := newTestUsecase(t, repo, newFakeStore())

	first, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Deal one"})
	if err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}
	second, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Deal two"})
	if err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}

	doc, err := uc.DocumentUpload(authedContext("broker-1"), DocumentUploadInput{
		DealID:   first.Deal.ID,
		FileName: "rent-roll.pdf",
		Body:     strings.NewReader("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("DocumentUpload() error = %v", err)
	}

	if _, err := uc.DocumentURL(authedContext("broker-1"), DocumentURLInput{
		DealID:     second.Deal.ID,
		DocumentID: doc.Document.ID,
	}); err == nil {
		t.Fatal("DocumentURL() error = nil, want not found for mismatched deal")
	}
}

func TestAdminDealListSeesAllOwners(t *testing.T) {
	repo := newMemoryDB()
	uc := newTestUsecase(t, repo, newFakeStore())

	if _, err := uc.DealCreate(authedContext("broker-1"), DealCreateInput{Name: "Deal one"}); err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}
	if _, err := uc.DealCreate(authedContext("broker-2"), DealCreateInput{Name: "Deal two"}); err != nil {
		t.Fatalf("DealCreate() error = %v", err)
	}

	out, err := uc.AdminDealList(authedContext("admin-1"), AdminDealListInput{})
	if err != nil {
		t.Fatalf("AdminDealList() error = %v", err)
	}
	if len(out.Deals) != 2 {
		t.Errorf("len(Deals) = %d, want 2", len(out.Deals))
	}
}
