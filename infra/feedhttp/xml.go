package feedhttp

import (
	"bytes"
	"encoding/xml"
	"net/http"

	"github.com/kilianp07/docfeed/core/model"
	"github.com/kilianp07/docfeed/core/pusher"
)

const doctype = `<!DOCTYPE gsafeed PUBLIC "-//Google//DTD GSA Feeds//EN" "">`

type gsaFeed struct {
	XMLName xml.Name  `xml:"gsafeed"`
	Header  gsaHeader `xml:"header"`
	Group   gsaGroup  `xml:"group"`
}

type gsaHeader struct {
	Datasource string `xml:"datasource"`
	FeedType   string `xml:"feedtype"`
}

type gsaGroup struct {
	Records []gsaRecord `xml:"record"`
}

type gsaRecord struct {
	URL              string `xml:"url,attr"`
	DisplayURL       string `xml:"displayurl,attr,omitempty"`
	Action           string `xml:"action,attr"`
	MimeType         string `xml:"mimetype,attr"`
	LastModified     string `xml:"last-modified,attr,omitempty"`
	CrawlImmediately string `xml:"crawl-immediately,attr,omitempty"`
	CrawlOnce        string `xml:"crawl-once,attr,omitempty"`
	Lock             string `xml:"lock,attr,omitempty"`
}

// Encode renders f as a GSA XML feed. Record urls are prefix followed by
// the document id.
func Encode(f pusher.Feed, prefix string) ([]byte, error) {
	doc := gsaFeed{
		Header: gsaHeader{Datasource: f.Datasource, FeedType: string(f.FeedType)},
		Group:  gsaGroup{Records: make([]gsaRecord, 0, len(f.Records))},
	}
	for _, r := range f.Records {
		doc.Group.Records = append(doc.Group.Records, encodeRecord(r, prefix))
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(doctype)
	buf.WriteByte('\n')
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRecord(r model.Record, prefix string) gsaRecord {
	rec := gsaRecord{
		URL:        prefix + string(r.DocID),
		DisplayURL: r.ResultLink,
		Action:     r.Action.String(),
		MimeType:   "text/plain",
	}
	if !r.LastModified.IsZero() {
		rec.LastModified = r.LastModified.UTC().Format(http.TimeFormat)
	}
	if r.CrawlImmediately {
		rec.CrawlImmediately = "true"
	}
	if r.CrawlOnce {
		rec.CrawlOnce = "true"
	}
	if r.Lock {
		rec.Lock = "true"
	}
	return rec
}
