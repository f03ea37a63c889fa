package main

import (
	"io/fs"
	"strings"
	"testing"

	appmigrations "github.com/namdevyakhya-17/psycare/migrations"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    command
		wantErr bool
	}{
		{args: nil, want: command{name: "up"}},
		{args: []string{"down"}, want: command{name: "down"}},
		{args: []string{"version"}, want: command{name: "version"}},
		{args: []string{"force", "3"}, want: command{name: "force", version: 3}},
		{args: []string{"force"}, wantErr: true},
		{args: []string{"force", "x"}, wantErr: true},
		{args: []string{"sideways"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.args)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%v: expected error", tt.args)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%v: expected %+v, got %+v (%v)", tt.args, tt.want, got, err)
		}
	}
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	err := run(nil, "", logging.New("error"))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(appmigrations.FS, "*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(ups) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(appmigrations.FS, down); err != nil {
			t.Fatalf("missing down migration for %s", up)
		}
	}

	schema, err := fs.ReadFile(appmigrations.FS, "000001_init.up.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(schema), "ON appointments (therapist_id, appointment_time)") {
		t.Fatalf("expected unique slot index in initial schema")
	}
}
