package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"docchat/internal/mailer"
	"docchat/internal/storage"
	"docchat/internal/tasks"
	"docchat/pkg/aigw"
	"docchat/pkg/convert"
	"docchat/pkg/domain"
	"docchat/pkg/otp"
	"docchat/pkg/store"
)

type fakeAI struct {
	mu sync.Mutex

	extractErr  error
	extracted   []aigw.ExtractRequest
	generateRes aigw.GenerateResult
	generateErr error
	title       string
	titleErr    error
	deleted     [][]string
	deleteErr   error
}

func (f *fakeAI) Extract(_ context.Context, req aigw.ExtractRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.extractErr != nil {
		return f.extractErr
	}
	f.extracted = append(f.extracted, req)
	return nil
}

func (f *fakeAI) Generate(_ context.Context, _ aigw.GenerateRequest) (aigw.GenerateResult, error) {
	if f.generateErr != nil {
		return aigw.GenerateResult{}, f.generateErr
	}
	return f.generateRes, nil
}

func (f *fakeAI) GenerateTitle(_ context.Context, _ string) (string, error) {
	return f.title, f.titleErr
}

func (f *fakeAI) DeleteChunks(_ context.Context, fileIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, fileIDs)
	return nil
}

type fakeAdmin struct {
	deletedSubjects  []string
	passwordSubjects []string
	deleteErr        error
	passwordErr      error
}

func (f *fakeAdmin) DeleteUser(_ context.Context, subject string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedSubjects = append(f.deletedSubjects, subject)
	return nil
}

func (f *fakeAdmin) UpdatePassword(_ context.Context, subject, _ string) error {
	if f.passwordErr != nil {
		return f.passwordErr
	}
	f.passwordSubjects = append(f.passwordSubjects, subject)
	return nil
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []tasks.Task
}

func (q *recordingQueue) Enqueue(_ context.Context, t tasks.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return nil
}

func (q *recordingQueue) last(t *testing.T) tasks.Task {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		t.Fatalf("no cleanup task enqueued")
	}
	return q.tasks[len(q.tasks)-1]
}

// pdfRunner pretends to convert by writing a stub output file.
type pdfRunner struct{ fail bool }

func (r pdfRunner) Run(_ context.Context, inputPath, outDir string) error {
	if r.fail {
		return os.ErrInvalid
	}
	out := convert.OutputPath(filepath.Join(outDir, filepath.Base(inputPath)))
	return os.WriteFile(out, []byte("%PDF-stub"), 0o644)
}

type testEnv struct {
	app   *App
	store store.Store
	files *storage.FileStore
	ai    *fakeAI
	admin *fakeAdmin
	queue *recordingQueue
	otp   otp.Store
	mail  *mailer.LogMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.OpenGormStore(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	env := &testEnv{
		store: st,
		files: files,
		ai:    &fakeAI{title: "Generated title", generateRes: aigw.GenerateResult{Text: "an answer", FilesUsed: []string{"doc.pdf"}}},
		admin: &fakeAdmin{},
		queue: &recordingQueue{},
		otp:   otp.NewMemoryStore(),
		mail:  &mailer.LogMailer{},
	}
	env.app, err = New(Config{
		Store:     st,
		OTP:       env.otp,
		AI:        env.ai,
		Files:     files,
		Converter: convert.NewWithRunner(pdfRunner{}, time.Second),
		Tasks:     env.queue,
		Identity:  env.admin,
		Mailer:    env.mail,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	env.app.verifyPDF = func(string) error { return nil }
	return env
}

func (e *testEnv) newUser(t *testing.T, email string) domain.User {
	t.Helper()
	now := time.Now().UTC()
	user, err := e.store.CreateUser(domain.User{
		ID:        "user-" + email,
		Subject:   "sub-" + email,
		Email:     email,
		Name:      "Tester",
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
