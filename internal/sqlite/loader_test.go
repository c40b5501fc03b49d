package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/moesafa-mgf/genie-haus/pkg/types"
)

func TestLoadToleratesBadLines(t *testing.T) {
	dir := t.TempDir()
	lines := `{"location_id":"loc","workspace_id":"ws","state_json":{"tasks":[{"id":"t_1","title":"A"}]},"updated_at":"2024-03-01T00:00:00Z","extra":true}
garbage
{"location_id":"loc","workspace_id":"missing-state"}
{"location_id":"loc","workspace_id":"ws","state_json":{"tasks":[{"id":"t_2","title":"B"}]},"updated_at":"2024-03-02T00:00:00Z"}
`
	if err := os.WriteFile(filepath.Join(dir, workspacesJSONL), []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	staff := `{"location_id":"loc","staff_id":"u1","email":"ada@x.com","name":"Ada","ordinal":0}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, staffJSONL), []byte(staff), 0o644); err != nil {
		t.Fatal(err)
	}

	b := attached(t, dir)
	ctx := context.Background()

	env, err := b.LoadState(ctx, "loc", "ws", "")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if env.State == nil || len(env.State.Tasks) != 1 || env.State.Tasks[0].ID != "t_2" {
		t.Errorf("expected the later line to win, got %+v", env.State)
	}

	missing, err := b.LoadState(ctx, "loc", "missing-state", "")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if missing.State != nil {
		t.Error("expected row without state_json to be skipped")
	}

	list, err := b.ListStaff(ctx, "loc")
	if err != nil {
		t.Fatalf("ListStaff failed: %v", err)
	}
	if len(list) != 1 || list[0] != (types.StaffMember{ID: "u1", Email: "ada@x.com", Name: "Ada"}) {
		t.Errorf("unexpected staff: %+v", list)
	}
}
