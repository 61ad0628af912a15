package model

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRecords(t *testing.T) {
	checks := []struct {
		name    string
		in      string
		want    []string
		actions []Action
	}{
		{"empty", "  \n", nil, nil},
		{"object", `{"doc_id":"a","action":"delete"}`, []string{"a"}, []Action{ActionDelete}},
		{"array of ids", `["a","b"]`, []string{"a", "b"}, []Action{ActionAdd, ActionAdd}},
		{"mixed array", `["a",{"doc_id":"b","action":"delete"}]`, []string{"a", "b"}, []Action{ActionAdd, ActionDelete}},
		{"lines", "a\n\n b \r\nc", []string{"a", "b", "c"}, []Action{ActionAdd, ActionAdd, ActionAdd}},
	}
	for _, c := range checks {
		recs, err := ParseRecords([]byte(c.in))
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if len(recs) != len(c.want) {
			t.Fatalf("%s: got %d records, want %d", c.name, len(recs), len(c.want))
		}
		for i, id := range c.want {
			if string(recs[i].DocID) != id || recs[i].Action != c.actions[i] {
				t.Fatalf("%s: record %d = %+v", c.name, i, recs[i])
			}
		}
	}
}

func TestParseRecordsErrors(t *testing.T) {
	if _, err := ParseRecords([]byte(`{"doc_id":""}`)); !errors.Is(err, ErrEmptyDocID) {
		t.Fatalf("expected ErrEmptyDocID, got %v", err)
	}
	if _, err := ParseRecords([]byte(`[1,2]`)); err == nil {
		t.Fatalf("expected error for numeric ids")
	}
	if _, err := ParseRecords([]byte(`{"doc_id":"a","action":"purge"}`)); err == nil {
		t.Fatalf("expected error for unknown action")
	}
	if _, err := ParseRecords([]byte(`{broken`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParseRecordsLongLine(t *testing.T) {
	long := strings.Repeat("d", 200*1024)
	recs, err := ParseRecords([]byte("a\n" + long + "\nb"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 3 || string(recs[1].DocID) != long {
		t.Fatalf("unexpected records: %d", len(recs))
	}
}
