package services

import (
	"context"
	"errors"
	"testing"

	"pageinbox/internal/adapters/graph"
)

func TestResolveOrCreateRegistersCustomer(t *testing.T) {
	env := newTestEnv(t)
	env.graph.profiles["100"] = &graph.UserProfile{ID: "100", FirstName: "Ada", LastName: "Lovelace"}
	env.graph.avatarURL = "https://cdn.example/avatar.jpg"

	customer, err := env.customers.ResolveOrCreate(context.Background(), "100", testIntegrationID, testPageToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if customer.FirstName != "Ada" || customer.LastName != "Lovelace" {
		t.Fatalf("name = %q %q, want Ada Lovelace", customer.FirstName, customer.LastName)
	}
	if customer.Avatar != "https://cdn.example/avatar.jpg" {
		t.Fatalf("avatar = %q", customer.Avatar)
	}
	if customer.FullName() != "Ada Lovelace" {
		t.Fatalf("full name = %q", customer.FullName())
	}
}

func TestResolveOrCreateReusesExistingCustomer(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.customers.ResolveOrCreate(context.Background(), "100", testIntegrationID, testPageToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := env.customers.ResolveOrCreate(context.Background(), "100", testIntegrationID, testPageToken)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resolved %q, want %q", second.ID, first.ID)
	}
	if env.graph.profileCalls != 1 {
		t.Fatalf("profile calls = %d, want 1", env.graph.profileCalls)
	}
}

func TestResolveOrCreateSplitsCombinedName(t *testing.T) {
	env := newTestEnv(t)
	env.graph.profiles["200"] = &graph.UserProfile{ID: "200", Name: "Grace Brewster Hopper"}

	customer, err := env.customers.ResolveOrCreate(context.Background(), "200", testIntegrationID, testPageToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if customer.FirstName != "Grace" {
		t.Fatalf("first name = %q, want Grace", customer.FirstName)
	}
	if customer.LastName != "Brewster Hopper" {
		t.Fatalf("last name = %q, want Brewster Hopper", customer.LastName)
	}
}

func TestResolveOrCreateToleratesAvatarFailure(t *testing.T) {
	env := newTestEnv(t)
	env.graph.avatarErr = errors.New("picture endpoint down")

	customer, err := env.customers.ResolveOrCreate(context.Background(), "100", testIntegrationID, testPageToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if customer.Avatar != "" {
		t.Fatalf("avatar = %q, want empty", customer.Avatar)
	}
}
