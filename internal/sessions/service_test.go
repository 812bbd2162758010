package sessions

import (
	"context"
	"testing"
	"time"
)

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if sess.Token == "" || sess.CSRFToken == "" {
		t.Fatalf("expected token and csrf token, got %+v", sess)
	}

	got, err := svc.Validate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if got == nil || got.UserID != "user-1" {
		t.Fatalf("unexpected session: %v", got)
	}

	if err := svc.Delete(ctx, sess.Token); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got2, _ := svc.Validate(ctx, sess.Token)
	if got2 != nil {
		t.Fatalf("expected session removed")
	}
}

func TestValidateEmptyAndUnknownToken(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	got, err := svc.Validate(ctx, "")
	if err != nil || got != nil {
		t.Fatalf("empty token should be (nil, nil), got %v %v", got, err)
	}
	got, err = svc.Validate(ctx, "never-issued")
	if err != nil || got != nil {
		t.Fatalf("unknown token should be (nil, nil), got %v %v", got, err)
	}
}

func TestVerifyCSRF(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	sess, err := svc.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	ok, err := svc.VerifyCSRF(ctx, sess.Token, sess.CSRFToken)
	if err != nil || !ok {
		t.Fatalf("expected matching csrf token to verify, got %v %v", ok, err)
	}
	ok, _ = svc.VerifyCSRF(ctx, sess.Token, "wrong")
	if ok {
		t.Fatalf("mismatched csrf token must not verify")
	}
	ok, _ = svc.VerifyCSRF(ctx, sess.Token, "")
	if ok {
		t.Fatalf("empty csrf token must not verify")
	}
	ok, _ = svc.VerifyCSRF(ctx, "no-session", sess.CSRFToken)
	if ok {
		t.Fatalf("csrf check without a session must fail")
	}
}
