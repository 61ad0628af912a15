package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseRecords decodes a payload carrying records. Accepted forms are a
// JSON object, a JSON array of objects or of id strings, and plain text
// with one id per line. Blank lines are skipped. Every record is validated.
func ParseRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var recs []Record
	switch trimmed[0] {
	case '{':
		var r Record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		recs = []Record{r}
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		recs = make([]Record, 0, len(raw))
		for i, m := range raw {
			r, err := decodeElement(m)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			recs = append(recs, r)
		}
	default:
		sc := bufio.NewScanner(bytes.NewReader(trimmed))
		// A single line may span the whole payload.
		sc.Buffer(make([]byte, 0, min(len(trimmed)+1, 64*1024)), len(trimmed)+1)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			recs = append(recs, NewRecord(string(line)))
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	for i, r := range recs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return recs, nil
}

func decodeElement(m json.RawMessage) (Record, error) {
	var id string
	if err := json.Unmarshal(m, &id); err == nil {
		return NewRecord(id), nil
	}
	var r Record
	err := json.Unmarshal(m, &r)
	return r, err
}
