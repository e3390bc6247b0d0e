// Copyright 2024-2026 Aiku AI

package securecontent

import (
	"encoding/json"
	"testing"
)

func TestViewerUnmarshalJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		input     string
		wantID    string
		wantCount int
		wantAdmin bool
	}{
		{"string id", `{"id":"abc","post_count":2}`, "abc", 2, false},
		{"numeric id", `{"id":8,"admin":true}`, "8", UnknownPostCount, true},
		{"large numeric id", `{"id":12345678901234567890}`, "12345678901234567890", UnknownPostCount, false},
		{"null id", `{"id":null,"post_count":0}`, "", 0, false},
		{"missing id", `{"username":"bob"}`, "", UnknownPostCount, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var v Viewer
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if v.ID != tt.wantID {
				t.Errorf("ID: got %q, want %q", v.ID, tt.wantID)
			}
			if v.PostCount != tt.wantCount {
				t.Errorf("PostCount: got %d, want %d", v.PostCount, tt.wantCount)
			}
			if v.Admin != tt.wantAdmin {
				t.Errorf("Admin: got %v, want %v", v.Admin, tt.wantAdmin)
			}
		})
	}
}

func TestViewerUnmarshalJSONInvalidID(t *testing.T) {
	t.Parallel()
	for _, input := range []string{`{"id":true}`, `{"id":{}}`, `{"id":[8]}`} {
		var v Viewer
		if err := json.Unmarshal([]byte(input), &v); err == nil {
			t.Errorf("%s: expected an error", input)
		}
	}
}

func TestMarkRepliedRequestNumericIDs(t *testing.T) {
	t.Parallel()
	var req MarkRepliedRequest
	if err := json.Unmarshal([]byte(`{"viewer_id":8,"thread_id":"42"}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.ViewerID != "8" || req.ThreadID != "42" {
		t.Errorf("got %+v", req)
	}
}
