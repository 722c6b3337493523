package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"identity-plane/internal/tenant/domain"
)

func TestCreateTenant_DuplicateSlug(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := r.CreateTenant(ctx, &domain.Tenant{ID: "t1", OwnerID: "u1", Slug: "acme", CreatedAt: now}); err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if err := r.CreateTenant(ctx, &domain.Tenant{ID: "t2", OwnerID: "u2", Slug: "acme", CreatedAt: now}); err == nil {
		t.Error("duplicate slug accepted")
	}
}

func TestSetPrimaryDomain_ConcurrentFlips(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	ids := []string{"d1", "d2"}
	for i, id := range ids {
		d := &domain.Domain{
			ID: id, TenantID: "t1", Name: id + ".example.com",
			Type: domain.DomainTypeCustom, IsPrimary: i == 0,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := r.CreateDomain(ctx, d); err != nil {
			t.Fatalf("CreateDomain: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		target := ids[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.SetPrimaryDomain(ctx, "t1", target)
		}()
	}
	wg.Wait()

	domains, err := r.ListDomains(ctx, "t1")
	if err != nil {
		t.Fatalf("ListDomains: %v", err)
	}
	primaries := 0
	for _, d := range domains {
		if d.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Errorf("primary count after concurrent flips = %d, want exactly 1", primaries)
	}
}

func TestSetPrimaryDomain_WrongTenant(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	_ = r.CreateDomain(ctx, &domain.Domain{ID: "d1", TenantID: "t1", Name: "a.example.com", Type: domain.DomainTypeCustom, CreatedAt: time.Now().UTC()})

	if err := r.SetPrimaryDomain(ctx, "t2", "d1"); err == nil {
		t.Error("SetPrimaryDomain across tenants: want error, got nil")
	}
}

func TestUpsertRule_Replaces(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	rule := &domain.DomainRule{
		ID: "r1", DomainID: "d1", Name: domain.RuleEnforceDomain,
		ValueType: domain.RuleValueBool, Value: json.RawMessage(`true`), CreatedAt: now,
	}
	if err := r.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("UpsertRule: %v", err)
	}
	rule2 := &domain.DomainRule{
		ID: "r2", DomainID: "d1", Name: domain.RuleEnforceDomain,
		ValueType: domain.RuleValueBool, Value: json.RawMessage(`false`), CreatedAt: now,
	}
	if err := r.UpsertRule(ctx, rule2); err != nil {
		t.Fatalf("UpsertRule replace: %v", err)
	}

	rules, err := r.ListRules(ctx, "d1")
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("rule count = %d, want 1", len(rules))
	}
	if rules[0].BoolValue() {
		t.Error("rule value not replaced")
	}
}

func TestDomainRule_BoolValue(t *testing.T) {
	cases := []struct {
		rule domain.DomainRule
		want bool
	}{
		{domain.DomainRule{ValueType: domain.RuleValueBool, Value: json.RawMessage(`true`)}, true},
		{domain.DomainRule{ValueType: domain.RuleValueBool, Value: json.RawMessage(`false`)}, false},
		{domain.DomainRule{ValueType: domain.RuleValueText, Value: json.RawMessage(`"true"`)}, false},
		{domain.DomainRule{ValueType: domain.RuleValueBool, Value: json.RawMessage(`garbage`)}, false},
	}
	for _, tc := range cases {
		if got := tc.rule.BoolValue(); got != tc.want {
			t.Errorf("BoolValue(%s %s) = %v, want %v", tc.rule.ValueType, tc.rule.Value, got, tc.want)
		}
	}
}
