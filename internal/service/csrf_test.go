package service

import (
	"context"
	"testing"
)

func TestCSRFIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)
	v := NewCSRFValidator()

	session, _, _ := m.GetOrCreate(ctx, "")
	token, err := v.Issue(session)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !v.Validate(session, token) {
		t.Fatal("issued token must validate against its session")
	}
}

func TestCSRFConcurrentTokensStayValid(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)
	v := NewCSRFValidator()

	session, _, _ := m.GetOrCreate(ctx, "")
	first, _ := v.Issue(session)
	second, _ := v.Issue(session)
	if first == second {
		t.Fatal("expected distinct tokens per issuance")
	}
	if !v.Validate(session, first) || !v.Validate(session, second) {
		t.Fatal("issuing a new token must not invalidate earlier ones")
	}
}

func TestCSRFRejectsForeignSessionToken(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)
	v := NewCSRFValidator()

	a, _, _ := m.GetOrCreate(ctx, "")
	b, _, _ := m.GetOrCreate(ctx, "")
	token, _ := v.Issue(a)
	if v.Validate(b, token) {
		t.Fatal("a token must be bound to the session that issued it")
	}
}

func TestCSRFRejectsMissingOrMalformed(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)
	v := NewCSRFValidator()

	session, _, _ := m.GetOrCreate(ctx, "")
	if v.Validate(session, "") {
		t.Fatal("empty token must not validate")
	}
	if v.Validate(session, "garbage") {
		t.Fatal("malformed token must not validate")
	}
	if v.Validate(nil, "anything") {
		t.Fatal("nil session must not validate")
	}
}
