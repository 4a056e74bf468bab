package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gracehq/chms/internal/domain"
)

// xmlFormatVersion is written into the XML metadata block so consumers can
// detect layout changes in future exports.
const xmlFormatVersion = "1.0"

// Payload is one named, encoded output. JSON and XML exports produce a
// single payload; CSV produces one per non-empty content type.
type Payload struct {
	Name string
	Data []byte
}

// Encoder converts an extracted result map into serialized payloads.
type Encoder struct{}

// Encode serializes the result map in the given format. The order slice is
// the caller's content-type selection order and fixes payload ordering.
// Empty input never fails; it yields a minimal valid payload instead.
func (Encoder) Encode(result map[domain.ContentType][]Record, order []domain.ContentType, format domain.ExportFormat, baseName string) ([]Payload, error) {
	switch format {
	case domain.ExportFormatJSON:
		return encodeJSON(result, baseName)
	case domain.ExportFormatCSV:
		return encodeCSV(result, order, baseName)
	case domain.ExportFormatXML:
		return encodeXML(result, order, baseName)
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

func encodeJSON(result map[domain.ContentType][]Record, baseName string) ([]Payload, error) {
	doc := make(map[string][]Record, len(result))
	for ct, records := range result {
		if records == nil {
			records = []Record{}
		}
		doc[string(ct)] = records
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON export: %w", err)
	}
	return []Payload{{Name: baseName + ".json", Data: data}}, nil
}

func encodeCSV(result map[domain.ContentType][]Record, order []domain.ContentType, baseName string) ([]Payload, error) {
	var payloads []Payload
	for _, ct := range order {
		records := result[ct]
		if len(records) == 0 {
			// a mixed collection cannot share one table, and an empty one
			// has no shape to describe
			continue
		}

		// Header comes from the first record's key set. Map iteration is
		// unordered, so the columns are sorted to keep artifacts stable.
		header := make([]string, 0, len(records[0]))
		for key := range records[0] {
			header = append(header, key)
		}
		sort.Strings(header)

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("failed to write CSV header for %s: %w", ct, err)
		}
		for _, rec := range records {
			row := make([]string, len(header))
			for i, key := range header {
				row[i] = csvCell(rec[key])
			}
			if err := w.Write(row); err != nil {
				return nil, fmt.Errorf("failed to write CSV row for %s: %w", ct, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("failed to flush CSV for %s: %w", ct, err)
		}

		payloads = append(payloads, Payload{Name: string(ct) + ".csv", Data: buf.Bytes()})
	}

	if len(payloads) == 0 {
		// nothing matched anywhere; still a valid (empty) export
		payloads = append(payloads, Payload{Name: baseName + ".csv", Data: []byte{}})
	}
	return payloads, nil
}

// csvCell renders one record value as a CSV cell. Nested references and
// slices are rendered as compact JSON, which is deterministic (JSON object
// keys are emitted sorted).
func csvCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func encodeXML(result map[domain.ContentType][]Record, order []domain.ContentType, baseName string) ([]Payload, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "export"}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	// Metadata block: export timestamp and format version
	meta := xml.StartElement{Name: xml.Name{Local: "meta"}}
	if err := enc.EncodeToken(meta); err != nil {
		return nil, err
	}
	if err := encodeXMLValue(enc, "generated_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if err := encodeXMLValue(enc, "version", xmlFormatVersion); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(meta.End()); err != nil {
		return nil, err
	}

	for _, ct := range order {
		records := result[ct]
		section := xml.StartElement{
			Name: xml.Name{Local: string(ct)},
			Attr: []xml.Attr{{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(len(records))}},
		}
		if err := enc.EncodeToken(section); err != nil {
			return nil, err
		}
		for _, rec := range records {
			if err := encodeXMLValue(enc, "record", rec); err != nil {
				return nil, err
			}
		}
		if err := enc.EncodeToken(section.End()); err != nil {
			return nil, err
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("failed to encode XML export: %w", err)
	}
	buf.WriteByte('\n')

	return []Payload{{Name: baseName + ".xml", Data: buf.Bytes()}}, nil
}

// encodeXMLValue writes one value under the given element name. Maps become
// nested elements with sorted keys; slices repeat an <item> element.
func encodeXMLValue(enc *xml.Encoder, name string, v interface{}) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	switch val := v.(type) {
	case nil:
		// empty element
	case Record:
		if err := encodeXMLMap(enc, map[string]interface{}(val)); err != nil {
			return err
		}
	case map[string]interface{}:
		if err := encodeXMLMap(enc, val); err != nil {
			return err
		}
	case []string:
		for _, item := range val {
			if err := encodeXMLValue(enc, "item", item); err != nil {
				return err
			}
		}
	default:
		if err := enc.EncodeToken(xml.CharData(fmt.Sprint(val))); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}

func encodeXMLMap(enc *xml.Encoder, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := encodeXMLValue(enc, key, m[key]); err != nil {
			return err
		}
	}
	return nil
}
