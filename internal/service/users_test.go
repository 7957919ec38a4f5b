package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkrylov/identityd/internal/models"
	"github.com/mkrylov/identityd/internal/repository"
	"github.com/mkrylov/identityd/internal/security"
)

// fakeRepo implements UserRepository with overridable funcs.
type fakeRepo struct {
	createUser         func(ctx context.Context, u *models.User) error
	findByUsername     func(ctx context.Context, canonical string) (*models.User, error)
	findByEmail        func(ctx context.Context, canonical string) (*models.User, error)
	findByID           func(ctx context.Context, id string) (*models.User, error)
	updatePasswordHash func(ctx context.Context, id, hash string) error
	updateProfile      func(ctx context.Context, u *models.User) error
	canonicalUsernames func(ctx context.Context) ([]string, error)
	canonicalEmails    func(ctx context.Context) ([]string, error)
}

func (f *fakeRepo) CreateUser(ctx context.Context, u *models.User) error {
	return f.createUser(ctx, u)
}

func (f *fakeRepo) FindByUsername(ctx context.Context, c string) (*models.User, error) {
	return f.findByUsername(ctx, c)
}

func (f *fakeRepo) FindByEmail(ctx context.Context, c string) (*models.User, error) {
	return f.findByEmail(ctx, c)
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return f.findByID(ctx, id)
}

func (f *fakeRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return f.updatePasswordHash(ctx, id, hash)
}

func (f *fakeRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	return f.updateProfile(ctx, u)
}

func (f *fakeRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (f *fakeRepo) CanonicalUsernames(ctx context.Context) ([]string, error) {
	if f.canonicalUsernames != nil {
		return f.canonicalUsernames(ctx)
	}
	return nil, nil
}

func (f *fakeRepo) CanonicalEmails(ctx context.Context) ([]string, error) {
	if f.canonicalEmails != nil {
		return f.canonicalEmails(ctx)
	}
	return nil, nil
}

// fakeHasher marks hashes with a prefix so tests can verify without real
// argon2 work.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(stored, password string) bool {
	return stored == "hashed:"+password
}

// fakeTokens issues "token-for:<id>" and verifies only that shape.
type fakeTokens struct{}

func (fakeTokens) Issue(userID string) (string, error) {
	return "token-for:" + userID, nil
}

func (fakeTokens) Verify(token string) (string, bool) {
	id, ok := strings.CutPrefix(token, "token-for:")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func lenientStrength() security.StrengthPolicy {
	return security.StrengthPolicy{MinLength: 4}
}

func newTestService(repo *fakeRepo, mail *fakeMailer) *UserService {
	if mail == nil {
		mail = &fakeMailer{}
	}
	return NewUserService(repo, fakeHasher{}, lenientStrength(), fakeTokens{}, mail, zap.NewNop())
}

func TestRegister_Success(t *testing.T) {
	var created *models.User
	repo := &fakeRepo{
		createUser: func(ctx context.Context, u *models.User) error {
			created = u
			return nil
		},
		canonicalUsernames: func(ctx context.Context) ([]string, error) {
			return []string{"bob"}, nil
		},
		canonicalEmails: func(ctx context.Context) ([]string, error) {
			return []string{"bob@example.com"}, nil
		},
	}
	svc := newTestService(repo, nil)

	user, err := svc.Register(context.Background(), "Alice", "Alice@Example.com", "sekret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == "" {
		t.Error("expected a generated user ID")
	}
	if user.UsernameCanonical != "alice" || user.EmailCanonical != "alice@example.com" {
		t.Errorf("canonical forms = %q/%q, want lowercase folds", user.UsernameCanonical, user.EmailCanonical)
	}
	if user.Username != "Alice" {
		t.Errorf("display username = %q, want original casing preserved", user.Username)
	}
	if user.PasswordHash != "hashed:sekret1" {
		t.Errorf("password hash = %q", user.PasswordHash)
	}
	if created == nil {
		t.Fatal("CreateUser was not called")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	cases := []struct{ username, email, password string }{
		{"", "a@example.com", "sekret1"},
		{"alice", "", "sekret1"},
		{"alice", "a@example.com", ""},
		{"   ", "a@example.com", "sekret1"},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), tc.username, tc.email, tc.password)
		if !errors.Is(err, ErrMissingFields) {
			t.Errorf("Register(%q,%q,...) = %v, want ErrMissingFields", tc.username, tc.email, err)
		}
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	_, err := svc.Register(context.Background(), "alice", "a@example.com", "abc")
	var policyErr *security.PolicyError
	if !errors.As(err, &policyErr) {
		t.Errorf("expected PolicyError for short password, got %v", err)
	}
}

func TestRegister_UsernameTakenCaseInsensitive(t *testing.T) {
	repo := &fakeRepo{
		canonicalUsernames: func(ctx context.Context) ([]string, error) {
			return []string{"alice"}, nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.Register(context.Background(), "ALICE", "new@example.com", "sekret1")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	repo := &fakeRepo{
		canonicalEmails: func(ctx context.Context) ([]string, error) {
			return []string{"alice@example.com"}, nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.Register(context.Background(), "newname", "Alice@Example.COM", "sekret1")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_LostRaceMapsToTaken(t *testing.T) {
	// The pre-check sees a free name but a concurrent insert wins; the
	// storage constraint rejects ours and the caller still sees "taken".
	repo := &fakeRepo{
		createUser: func(ctx context.Context, u *models.User) error {
			return repository.ErrDuplicateUsername
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.Register(context.Background(), "alice", "a@example.com", "sekret1")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken after lost race, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	stored := &models.User{
		ID:                "id-1",
		UsernameCanonical: "alice",
		PasswordHash:      "hashed:sekret1",
	}
	repo := &fakeRepo{
		findByUsername: func(ctx context.Context, canonical string) (*models.User, error) {
			if canonical == "alice" {
				return stored, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	svc := newTestService(repo, nil)

	user, err := svc.Authenticate(context.Background(), "Alice", "sekret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "id-1" {
		t.Errorf("got user %q", user.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(context.Background(), "ghost", "sekret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
}

func TestChangePassword(t *testing.T) {
	var updatedHash string
	repo := &fakeRepo{
		findByID: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, PasswordHash: "hashed:old-pass"}, nil
		},
		updatePasswordHash: func(ctx context.Context, id, hash string) error {
			updatedHash = hash
			return nil
		},
	}
	svc := newTestService(repo, nil)

	if err := svc.ChangePassword(context.Background(), "id-1", "old-pass", "new-pass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updatedHash != "hashed:new-pass" {
		t.Errorf("stored hash = %q", updatedHash)
	}

	err := svc.ChangePassword(context.Background(), "id-1", "wrong", "new-pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong current password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestUpdateProfile_UnchangedUsernameExempt(t *testing.T) {
	current := &models.User{
		ID:                "id-1",
		Username:          "Alice",
		UsernameCanonical: "alice",
		Email:             "a@example.com",
		EmailCanonical:    "a@example.com",
	}
	repo := &fakeRepo{
		findByID: func(ctx context.Context, id string) (*models.User, error) {
			u := *current
			return &u, nil
		},
		updateProfile: func(ctx context.Context, u *models.User) error { return nil },
		canonicalUsernames: func(ctx context.Context) ([]string, error) {
			return []string{"alice", "bob"}, nil
		},
		canonicalEmails: func(ctx context.Context) ([]string, error) {
			return []string{"a@example.com"}, nil
		},
	}
	svc := newTestService(repo, nil)

	// Re-casing your own name collides canonically but is exempt.
	user, err := svc.UpdateProfile(context.Background(), "id-1", "ALICE", "a@example.com", "new bio")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "ALICE" || user.About != "new bio" {
		t.Errorf("updated user = %+v", user)
	}

	// Taking someone else's name is not.
	if _, err := svc.UpdateProfile(context.Background(), "id-1", "Bob", "a@example.com", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRequestPasswordReset_SendsMail(t *testing.T) {
	repo := &fakeRepo{
		findByEmail: func(ctx context.Context, canonical string) (*models.User, error) {
			return &models.User{ID: "id-1", Email: "Alice@Example.com"}, nil
		},
	}
	mail := &fakeMailer{}
	svc := newTestService(repo, mail)

	if err := svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mail.sent))
	}
	if mail.sent[0].to != "Alice@Example.com" {
		t.Errorf("mail sent to %q", mail.sent[0].to)
	}
	if !strings.Contains(mail.sent[0].body, "token-for:id-1") {
		t.Errorf("mail body missing token: %q", mail.sent[0].body)
	}
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	repo := &fakeRepo{
		findByEmail: func(ctx context.Context, canonical string) (*models.User, error) {
			return nil, repository.ErrNotFound
		},
	}
	mail := &fakeMailer{}
	svc := newTestService(repo, mail)

	if err := svc.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}
	if len(mail.sent) != 0 {
		t.Errorf("expected no mail, got %d", len(mail.sent))
	}
}

func TestResetPassword(t *testing.T) {
	var updatedID, updatedHash string
	repo := &fakeRepo{
		updatePasswordHash: func(ctx context.Context, id, hash string) error {
			updatedID, updatedHash = id, hash
			return nil
		},
	}
	svc := newTestService(repo, nil)

	if err := svc.ResetPassword(context.Background(), "token-for:id-1", "new-pass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updatedID != "id-1" || updatedHash != "hashed:new-pass" {
		t.Errorf("update = (%q, %q)", updatedID, updatedHash)
	}
}

func TestResetPassword_BadToken(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	err := svc.ResetPassword(context.Background(), "garbage", "new-pass")
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestResetPassword_DeletedUser(t *testing.T) {
	repo := &fakeRepo{
		updatePasswordHash: func(ctx context.Context, id, hash string) error {
			return repository.ErrNotFound
		},
	}
	svc := newTestService(repo, nil)

	err := svc.ResetPassword(context.Background(), "token-for:gone", "new-pass")
	if !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expected ErrInvalidResetToken for vanished user, got %v", err)
	}
}
