package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"aibootstrap/internal/provision"
)

var userSteps = []string{"user.sudo", "cuda.environment", "python.uv"}

func planJSON(t *testing.T, opts Options) map[string]provision.PlanEntry {
	t.Helper()
	streams, out := testStreams(t)
	if err := Plan(context.Background(), opts, true, streams); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	var entries []provision.PlanEntry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(entries) != len(provision.StepNames()) {
		t.Fatalf("Expected %d entries, got %d", len(provision.StepNames()), len(entries))
	}

	byName := make(map[string]provision.PlanEntry, len(entries))
	for i, e := range entries {
		if e.Index != i+1 {
			t.Errorf("entry %s has index %d, want %d", e.Name, e.Index, i+1)
		}
		byName[e.Name] = e
	}
	return byName
}

func TestPlan_UnknownWithoutTargetUser(t *testing.T) {
	isolate(t)
	sys := newFakeHost(0)
	useHost(t, sys)

	entries := planJSON(t, Options{LogLevel: "error"})

	for _, name := range userSteps {
		e := entries[name]
		if e.Action != provision.PlanUnknown {
			t.Errorf("%s action = %q, want %q", name, e.Action, provision.PlanUnknown)
		}
		if !strings.Contains(e.Reason, provision.ErrNoTargetUser.Error()) {
			t.Errorf("%s reason = %q, want the missing user", name, e.Reason)
		}
	}
	if e := entries["kernel.headers"]; e.Action != provision.PlanApply {
		t.Errorf("kernel.headers action = %q, want %q", e.Action, provision.PlanApply)
	}
	if e := entries["system.upgrade"]; e.Action != provision.PlanAlways {
		t.Errorf("system.upgrade action = %q, want %q", e.Action, provision.PlanAlways)
	}
	if len(sys.mutations) != 0 {
		t.Errorf("plan mutated the host: %v", sys.mutations)
	}
}

func TestPlan_TargetUserResolvesGuards(t *testing.T) {
	isolate(t)
	sys := newFakeHost(1000)
	sys.groups["sudo"]["alice"] = true
	useHost(t, sys)

	entries := planJSON(t, Options{User: "alice", LogLevel: "error"})

	if e := entries["user.sudo"]; e.Action != provision.PlanSkip {
		t.Errorf("user.sudo action = %q, want %q (%s)", e.Action, provision.PlanSkip, e.Reason)
	}
	for _, name := range userSteps {
		if e := entries[name]; e.Action == provision.PlanUnknown {
			t.Errorf("%s still unknown with a target user: %s", name, e.Reason)
		}
	}
}

func TestPlan_TextOutput(t *testing.T) {
	isolate(t)
	useHost(t, newFakeHost(0))

	streams, out := testStreams(t)
	if err := Plan(context.Background(), Options{LogLevel: "error"}, false, streams); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	for _, want := range []string{"aibootstrap: plan", "Install the CUDA toolkit", "step(s) would make changes"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
}
