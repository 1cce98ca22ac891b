package device

import (
	"reflect"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name        string
		cmd         Command
		wantKept    Command
		wantDropped []string
	}{
		{
			name:        "all valid fields",
			cmd:         Command{"name": "Lamp", "status": "on", "online": true},
			wantKept:    Command{"name": "Lamp", "status": "on", "online": true},
			wantDropped: nil,
		},
		{
			name:        "unknown fields stripped",
			cmd:         Command{"status": "on", "hackerman": 1, "color": "red"},
			wantKept:    Command{"status": "on"},
			wantDropped: []string{"color", "hackerman"},
		},
		{
			name:        "all fields unknown",
			cmd:         Command{"foo": 1, "bar": 2},
			wantKept:    Command{},
			wantDropped: []string{"bar", "foo"},
		},
		{
			name:        "empty command",
			cmd:         Command{},
			wantKept:    Command{},
			wantDropped: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, dropped := Sanitize(tt.cmd)
			if !reflect.DeepEqual(kept, tt.wantKept) {
				t.Errorf("kept = %v, want %v", kept, tt.wantKept)
			}
			if !reflect.DeepEqual(dropped, tt.wantDropped) {
				t.Errorf("dropped = %v, want %v", dropped, tt.wantDropped)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want map[string]string
	}{
		{
			name: "booleans become lowercase literals",
			cmd:  Command{"online": true, "status": false},
			want: map[string]string{"online": "true", "status": "false"},
		},
		{
			name: "strings pass through",
			cmd:  Command{"name": "Kitchen Lamp"},
			want: map[string]string{"name": "Kitchen Lamp"},
		},
		{
			name: "whole JSON numbers have no decimal point",
			cmd:  Command{"status": float64(5)},
			want: map[string]string{"status": "5"},
		},
		{
			name: "fractional numbers keep their fraction",
			cmd:  Command{"status": 5.5},
			want: map[string]string{"status": "5.5"},
		},
		{
			name: "native ints format plainly",
			cmd:  Command{"status": 42},
			want: map[string]string{"status": "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.cmd)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Coerce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsIdempotent(t *testing.T) {
	current := map[string]string{"name": "Lamp", "status": "on", "online": "true"}

	tests := []struct {
		name    string
		coerced map[string]string
		want    bool
	}{
		{
			name:    "exact subset matches",
			coerced: map[string]string{"status": "on"},
			want:    true,
		},
		{
			name:    "full match",
			coerced: map[string]string{"name": "Lamp", "status": "on", "online": "true"},
			want:    true,
		},
		{
			name:    "one differing field",
			coerced: map[string]string{"status": "off"},
			want:    false,
		},
		{
			name:    "field absent from current state",
			coerced: map[string]string{"type": "light"},
			want:    false,
		},
		{
			name:    "empty command is vacuously idempotent",
			coerced: map[string]string{},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIdempotent(current, tt.coerced); got != tt.want {
				t.Errorf("IsIdempotent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoerceRoundTrip(t *testing.T) {
	// A stored boolean must round-trip back to a Go bool on read.
	coerced := Coerce(Command{"online": false})
	if coerced["online"] != "false" {
		t.Fatalf("coerced online = %q, want %q", coerced["online"], "false")
	}

	online, err := parseStoredBool(coerced["online"])
	if err != nil {
		t.Fatalf("parseStoredBool() error = %v", err)
	}
	if online != false {
		t.Errorf("round-tripped online = %v, want false", online)
	}
}

func TestFormatFields(t *testing.T) {
	got := FormatFields(map[string]string{"status": "on", "name": "Lamp"})
	want := "name=Lamp, status=on"
	if got != want {
		t.Errorf("FormatFields() = %q, want %q", got, want)
	}
}

func TestParseDevice(t *testing.T) {
	tests := []struct {
		name    string
		hash    map[string]string
		wantErr bool
	}{
		{
			name:    "valid hash",
			hash:    validHash(),
			wantErr: false,
		},
		{
			name: "missing required field",
			hash: map[string]string{
				FieldName: "Lamp", FieldType: "light", FieldStatus: "on",
			},
			wantErr: true,
		},
		{
			name: "non-canonical online value",
			hash: map[string]string{
				FieldName: "Lamp", FieldType: "light", FieldStatus: "on", FieldOnline: "True",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := ParseDevice("1", tt.hash)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseDevice() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDevice() error = %v", err)
			}
			if dev.ID != "1" {
				t.Errorf("ID = %q, want %q", dev.ID, "1")
			}
			if !dev.Online {
				t.Error("Online = false, want true")
			}
		})
	}
}

func TestKeys(t *testing.T) {
	if got := StateKey("42"); got != "device:42" {
		t.Errorf("StateKey() = %q, want %q", got, "device:42")
	}
	if got := HistoryKey("42"); got != "device:history:42" {
		t.Errorf("HistoryKey() = %q, want %q", got, "device:history:42")
	}
	if got := UpdatesChannel("42"); got != "device:updates:42" {
		t.Errorf("UpdatesChannel() = %q, want %q", got, "device:updates:42")
	}
	if !IsHistoryKey("device:history:42") {
		t.Error("IsHistoryKey(device:history:42) = false, want true")
	}
	if IsHistoryKey("device:42") {
		t.Error("IsHistoryKey(device:42) = true, want false")
	}
	if got := IDFromStateKey("device:42"); got != "42" {
		t.Errorf("IDFromStateKey() = %q, want %q", got, "42")
	}
	if got := IDFromStateKey("other:42"); got != "" {
		t.Errorf("IDFromStateKey(other:42) = %q, want empty", got)
	}
}
