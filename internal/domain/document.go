package domain

import (
	"encoding/json"
	"fmt"
)

// Entry is one element of a Document: a type tag plus its payload. On the wire
// the tag and the payload fields share one flat JSON object.
type Entry struct {
	Type BlockType
	Data BlockData
}

// Document is the ordered block sequence exchanged as JSON.
type Document []Entry

func (e Entry) MarshalJSON() ([]byte, error) {
	var body []byte
	switch d := e.Data.(type) {
	case nil:
		body = []byte("{}")
	case RawData:
		body = d.Fields
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("marshal %s block: %w", e.Type, err)
		}
		body = b
	}

	fields := map[string]json.RawMessage{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("flatten %s block: %w", e.Type, err)
		}
	}
	typ, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}
	fields["type"] = typ
	return json.Marshal(fields)
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var head struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return fmt.Errorf("read block type: %w", err)
	}
	data, err := decodeBlockData(head.Type, b)
	if err != nil {
		return err
	}
	e.Type = head.Type
	e.Data = data
	return nil
}

func decodeBlockData(t BlockType, b []byte) (BlockData, error) {
	var (
		data BlockData
		err  error
	)
	switch t {
	case BlockTypeParagraph:
		var d ParagraphData
		err = json.Unmarshal(b, &d)
		data = d
	case BlockTypeList:
		var d ListData
		err = json.Unmarshal(b, &d)
		data = d
	case BlockTypeTable:
		var d TableData
		err = json.Unmarshal(b, &d)
		data = d
	case BlockTypeImage:
		var d ImageData
		err = json.Unmarshal(b, &d)
		data = d
	case BlockTypeYouTube:
		var d YouTubeData
		err = json.Unmarshal(b, &d)
		data = d
	default:
		data = RawData{Type: t, Fields: append(json.RawMessage(nil), b...)}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s block: %w", t, err)
	}
	return data, nil
}

// ParseDocument decodes the JSON document format.
func ParseDocument(b []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
