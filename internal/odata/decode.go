package odata

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// properties collects the children of an m:properties element by local
// name. Elements flagged m:null="true" map to "".
type properties map[string]string

func (p *properties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*p = make(properties)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if isNull(t) {
				(*p)[t.Name.Local] = ""
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			(*p)[t.Name.Local] = v
		case xml.EndElement:
			return nil
		}
	}
}

func isNull(el xml.StartElement) bool {
	for _, a := range el.Attr {
		if a.Name.Local == "null" && a.Value == "true" {
			return true
		}
	}
	return false
}

type atomEntry struct {
	Content struct {
		Properties properties `xml:"properties"`
	} `xml:"content"`
	// Media link entries carry properties outside content.
	Properties properties `xml:"properties"`
}

func (e atomEntry) record() map[string]string {
	rec := make(map[string]string, len(e.Content.Properties)+len(e.Properties))
	for k, v := range e.Properties {
		rec[k] = v
	}
	for k, v := range e.Content.Properties {
		rec[k] = v
	}
	return rec
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

func decodeAtomFeed(r io.Reader) ([]map[string]string, error) {
	var feed atomFeed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode atom feed: %w", err)
	}
	out := make([]map[string]string, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		out = append(out, e.record())
	}
	return out, nil
}

func decodeAtomEntry(r io.Reader) (map[string]string, error) {
	var entry struct {
		XMLName xml.Name `xml:"entry"`
		atomEntry
	}
	if err := xml.NewDecoder(r).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode atom entry: %w", err)
	}
	return entry.record(), nil
}

// decodeJSON reads OData v2 verbose JSON: {"d":{"results":[...]}},
// {"d":[...]} or a single entity {"d":{...}}.
func decodeJSON(r io.Reader) ([]map[string]string, error) {
	var envelope struct {
		D json.RawMessage `json:"d"`
	}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	raw := bytes.TrimSpace(envelope.D)
	if len(raw) == 0 {
		return nil, errors.New("decode json: missing d")
	}

	if raw[0] == '{' {
		var wrapped struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		if len(wrapped.Results) == 0 {
			rec, err := jsonEntity(raw)
			if err != nil {
				return nil, err
			}
			return []map[string]string{rec}, nil
		}
		raw = wrapped.Results
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode json results: %w", err)
	}
	out := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rec, err := jsonEntity(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func jsonEntity(raw []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode json entity: %w", err)
	}

	rec := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			rec[k] = val
		case json.Number:
			rec[k] = val.String()
		case bool:
			rec[k] = strconv.FormatBool(val)
		case nil:
			rec[k] = ""
		default:
			// __metadata, deferred navigation properties and complex types
		}
	}
	return rec, nil
}
