package service

import (
	"errors"
	"testing"
	"time"

	"printwatch"

	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "test-signing-key"

func TestAuthSignUp_HashesPassword(t *testing.T) {
	repo := &fakeAuthRepo{nextID: 7}
	s := NewAuthService(repo, testSigningKey, time.Hour)

	id, err := s.SignUp("alice", "s3cret")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d", id)
	}
	if repo.lastHash == "s3cret" || repo.lastHash == "" {
		t.Fatalf("password stored unhashed: %q", repo.lastHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.lastHash), []byte("s3cret")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestAuthSignUp_EmptyPassword(t *testing.T) {
	s := NewAuthService(&fakeAuthRepo{}, testSigningKey, time.Hour)
	if _, err := s.SignUp("alice", "   "); err == nil {
		t.Fatal("expected error for blank password")
	}
}

func TestAuthTokenRoundTrip(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	repo := &fakeAuthRepo{user: &printwatch.User{ID: 42, Username: "alice", PasswordHash: string(hash)}}
	s := NewAuthService(repo, testSigningKey, time.Hour)

	token, err := s.GenerateToken("alice", "s3cret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	userID, err := s.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if userID != 42 {
		t.Fatalf("userID = %d, want 42", userID)
	}
}

func TestAuthGenerateToken_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	repo := &fakeAuthRepo{user: &printwatch.User{ID: 42, PasswordHash: string(hash)}}
	s := NewAuthService(repo, testSigningKey, time.Hour)

	if _, err := s.GenerateToken("alice", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("want ErrInvalidPassword, got %v", err)
	}
}

func TestAuthGenerateToken_UnknownUser(t *testing.T) {
	s := NewAuthService(&fakeAuthRepo{}, testSigningKey, time.Hour)
	if _, err := s.GenerateToken("ghost", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestAuthParseToken_WrongKey(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	repo := &fakeAuthRepo{user: &printwatch.User{ID: 1, PasswordHash: string(hash)}}
	issuer := NewAuthService(repo, "key-one", time.Hour)
	verifier := NewAuthService(repo, "key-two", time.Hour)

	token, err := issuer.GenerateToken("alice", "s3cret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatal("token verified with the wrong key")
	}
}

func TestAuthParseToken_Garbage(t *testing.T) {
	s := NewAuthService(&fakeAuthRepo{}, testSigningKey, time.Hour)
	if _, err := s.ParseToken("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
