package model

import (
	"encoding/json"
	"testing"
)

func TestParseAction(t *testing.T) {
	cases := map[string]Action{"": ActionAdd, "add": ActionAdd, "DELETE": ActionDelete, " delete ": ActionDelete}
	for in, want := range cases {
		got, err := ParseAction(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v want %v", in, got, want)
		}
	}
	if _, err := ParseAction("purge"); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestRecordJSON(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"doc_id":"docs/a.pdf","action":"delete","crawl_immediately":true}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.DocID != "docs/a.pdf" || r.Action != ActionDelete || !r.CrawlImmediately {
		t.Fatalf("unexpected record %+v", r)
	}
	b, err := json.Marshal(NewRecord("x"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"doc_id":"x","action":"add","last_modified":"0001-01-01T00:00:00Z"}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestRecordValidate(t *testing.T) {
	if err := (Record{DocID: "  "}).Validate(); err != ErrEmptyDocID {
		t.Fatalf("expected ErrEmptyDocID got %v", err)
	}
	if err := NewRecord("a").Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
