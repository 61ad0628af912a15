package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DocID uniquely identifies a document in the content repository.
type DocID string

// Action tells the search service what to do with a document.
type Action int

const (
	ActionAdd Action = iota
	ActionDelete
)

// String returns the feed representation of the action.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseAction converts "add" or "delete" (case-insensitive). An empty string
// means add.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "add":
		return ActionAdd, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Record is one document identifier with the crawl hints sent along with it.
type Record struct {
	DocID            DocID     `json:"doc_id"`
	Action           Action    `json:"action"`
	LastModified     time.Time `json:"last_modified,omitempty"`
	CrawlImmediately bool      `json:"crawl_immediately,omitempty"`
	CrawlOnce        bool      `json:"crawl_once,omitempty"`
	Lock             bool      `json:"lock,omitempty"`
	ResultLink       string    `json:"result_link,omitempty"`
}

// ErrEmptyDocID is returned by Validate for records without an identifier.
var ErrEmptyDocID = errors.New("record has an empty doc id")

// NewRecord returns an add record for id.
func NewRecord(id string) Record {
	return Record{DocID: DocID(id), Action: ActionAdd}
}

// Validate checks mandatory fields.
func (r Record) Validate() error {
	if strings.TrimSpace(string(r.DocID)) == "" {
		return ErrEmptyDocID
	}
	return nil
}
