package goInvite

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func mustCreateToken(t *testing.T, engine *Engine, value string, quota int) *Token {
	t.Helper()

	tok, err := engine.CreateToken(context.Background(), CreateTokenRequest{
		Value:      value,
		OwnerLabel: "owner of " + value,
		Quota:      quota,
	})
	if err != nil {
		t.Fatalf("CreateToken(%q) failed: %v", value, err)
	}
	return tok
}

func TestConsumeSpendsQuotaAndIssuesCredential(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	mustCreateToken(t, engine, "demo", 2)

	first, err := engine.Consume(ctx, "demo")
	if err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if first.RemainingUses != 1 {
		t.Fatalf("expected 1 remaining use, got %d", first.RemainingUses)
	}
	if first.Credential == "" {
		t.Fatal("expected a credential")
	}
	if first.Identity == nil || first.Identity.ID == "" {
		t.Fatal("expected a materialized identity")
	}
	if first.Session == nil || !first.Session.Active {
		t.Fatal("expected an active session")
	}

	second, err := engine.Consume(ctx, "demo")
	if err != nil {
		t.Fatalf("second consume failed: %v", err)
	}
	if second.RemainingUses != 0 {
		t.Fatalf("expected 0 remaining uses, got %d", second.RemainingUses)
	}

	// Both consumptions resolve to the same identity.
	if first.Identity.ID != second.Identity.ID {
		t.Fatalf("identity changed across consumptions: %s vs %s", first.Identity.ID, second.Identity.ID)
	}
	if second.Identity.LoginCount != 2 {
		t.Fatalf("expected login count 2, got %d", second.Identity.LoginCount)
	}
	if first.Session.SessionID == second.Session.SessionID {
		t.Fatal("expected distinct sessions per consumption")
	}

	if _, err := engine.Consume(ctx, "demo"); !errors.Is(err, ErrTokenExhausted) {
		t.Fatalf("expected ErrTokenExhausted, got %v", err)
	}

	tok, err := engine.GetToken(ctx, "demo")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if tok.Active {
		t.Fatal("expected exhausted token to be deactivated")
	}
	if tok.Uses != 2 {
		t.Fatalf("expected 2 uses, got %d", tok.Uses)
	}
}

func TestConsumeUnknownToken(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()

	if _, err := engine.Consume(context.Background(), "nope"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestConsumeValueLengthBoundsRejectedAsNotFound(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()

	if _, err := engine.Consume(context.Background(), "ab"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for short value, got %v", err)
	}
}

func TestConsumeInactiveToken(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	tok := mustCreateToken(t, engine, "paused", 5)
	if _, err := engine.DeactivateToken(ctx, tok.ID); err != nil {
		t.Fatalf("DeactivateToken failed: %v", err)
	}

	if _, err := engine.Consume(ctx, "paused"); !errors.Is(err, ErrTokenInactive) {
		t.Fatalf("expected ErrTokenInactive, got %v", err)
	}
}

func TestConsumeRecordsClientMetadata(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()

	mustCreateToken(t, engine, "meta", 1)

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	ctx = WithUserAgent(ctx, "test-agent/1.0")

	res, err := engine.Consume(ctx, "meta")
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if res.Session.IPAddress != "203.0.113.9" {
		t.Fatalf("expected recorded IP, got %q", res.Session.IPAddress)
	}
	if res.Session.UserAgent != "test-agent/1.0" {
		t.Fatalf("expected recorded user agent, got %q", res.Session.UserAgent)
	}
}

func TestConsumeWithPayloadAttachesPayload(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	mustCreateToken(t, engine, "payload", 3)

	if _, err := engine.ConsumeWithPayload(ctx, "payload", []byte(`{"ref":"a"}`)); err != nil {
		t.Fatalf("consume with payload failed: %v", err)
	}

	tok, err := engine.GetToken(ctx, "payload")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if string(tok.Payload) != `{"ref":"a"}` {
		t.Fatalf("expected payload to be stored, got %q", tok.Payload)
	}

	// Plain consume leaves the previous payload in place.
	if _, err := engine.Consume(ctx, "payload"); err != nil {
		t.Fatalf("plain consume failed: %v", err)
	}
	tok, err = engine.GetToken(ctx, "payload")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if string(tok.Payload) != `{"ref":"a"}` {
		t.Fatalf("expected payload retained, got %q", tok.Payload)
	}
}

func TestConsumeConcurrentExactlyQuotaWinners(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	const quota = 10
	const attempts = 40
	mustCreateToken(t, engine, "contested", quota)

	var (
		wg        sync.WaitGroup
		successes atomic.Int64
		exhausted atomic.Int64
	)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Consume(ctx, "contested")
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrTokenExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected consume error: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if successes.Load() != quota {
		t.Fatalf("expected exactly %d successful consumptions, got %d", quota, successes.Load())
	}
	if exhausted.Load() != attempts-quota {
		t.Fatalf("expected %d exhausted rejections, got %d", attempts-quota, exhausted.Load())
	}

	tok, err := engine.GetToken(ctx, "contested")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if tok.Uses != quota {
		t.Fatalf("expected uses == quota, got %d", tok.Uses)
	}
	if tok.Active {
		t.Fatal("expected token deactivated at quota")
	}
}

func TestConsumeConcurrentSingleIdentity(t *testing.T) {
	engine, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	const quota = 8
	mustCreateToken(t, engine, "first-use", quota)

	var wg sync.WaitGroup
	ids := make([]string, quota)
	start := make(chan struct{})

	for i := 0; i < quota; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			<-start
			res, err := engine.Consume(ctx, "first-use")
			if err != nil {
				t.Errorf("consume failed: %v", err)
				return
			}
			ids[slot] = res.Identity.ID
		}(i)
	}

	close(start)
	wg.Wait()

	for i := 1; i < quota; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("racing first consumers disagreed on identity: %s vs %s", ids[0], ids[i])
		}
	}
}
