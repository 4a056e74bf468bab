package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gracehq/chms/internal/domain"
)

func sampleResult() map[domain.ContentType][]Record {
	return map[domain.ContentType][]Record{
		domain.ContentTypeUsers: {
			{"id": "u1", "name": "Ada", "email": "ada@example.com", "active": true},
			{"id": "u2", "name": "Ben", "email": "ben@example.com", "active": false},
		},
		domain.ContentTypeBlogs: {
			{"id": "b1", "title": "Welcome", "author": map[string]interface{}{"name": "Ada", "email": "ada@example.com"}},
		},
	}
}

func TestEncodeJSONRoundTrip(t *testing.T) {
	var enc Encoder
	order := []domain.ContentType{domain.ContentTypeUsers, domain.ContentTypeBlogs}

	payloads, err := enc.Encode(sampleResult(), order, domain.ExportFormatJSON, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(payloads))
	}
	if payloads[0].Name != "backup.json" {
		t.Errorf("payload name = %q, want backup.json", payloads[0].Name)
	}

	var decoded map[string][]map[string]interface{}
	if err := json.Unmarshal(payloads[0].Data, &decoded); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}

	users := decoded["users"]
	if len(users) != 2 {
		t.Fatalf("users = %d records, want 2", len(users))
	}
	ids := map[string]bool{}
	for _, rec := range users {
		ids[rec["id"].(string)] = true
	}
	if !ids["u1"] || !ids["u2"] {
		t.Errorf("round-trip lost user identities: %v", ids)
	}
	if len(decoded["blogs"]) != 1 {
		t.Errorf("blogs = %d records, want 1", len(decoded["blogs"]))
	}
}

func TestEncodeJSONEmptyInput(t *testing.T) {
	var enc Encoder

	payloads, err := enc.Encode(map[domain.ContentType][]Record{}, nil, domain.ExportFormatJSON, "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(payloads[0].Data, &decoded); err != nil {
		t.Fatalf("empty export is not valid JSON: %v", err)
	}
}

func TestEncodeCSVOnePayloadPerContentType(t *testing.T) {
	var enc Encoder
	order := []domain.ContentType{domain.ContentTypeUsers, domain.ContentTypeBlogs}

	payloads, err := enc.Encode(sampleResult(), order, domain.ExportFormatCSV, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("payloads = %d, want 2", len(payloads))
	}
	if payloads[0].Name != "users.csv" || payloads[1].Name != "blogs.csv" {
		t.Errorf("unexpected payload names: %s, %s", payloads[0].Name, payloads[1].Name)
	}

	r := csv.NewReader(bytes.NewReader(payloads[0].Data))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("users.csv is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("users.csv rows = %d, want header + 2", len(rows))
	}

	// Headers are the first record's keys, sorted for stability
	wantHeader := []string{"active", "email", "id", "name"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}
}

func TestEncodeCSVSkipsEmptyTypesButNeverReturnsNothing(t *testing.T) {
	var enc Encoder
	order := []domain.ContentType{domain.ContentTypeUsers, domain.ContentTypeBlogs}
	result := map[domain.ContentType][]Record{
		domain.ContentTypeUsers: {{"id": "u1"}},
		domain.ContentTypeBlogs: {},
	}

	payloads, err := enc.Encode(result, order, domain.ExportFormatCSV, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 1 || payloads[0].Name != "users.csv" {
		t.Fatalf("expected only users.csv, got %+v", payloadNames(payloads))
	}

	// all-empty input still yields one (empty) payload
	payloads, err = enc.Encode(map[domain.ContentType][]Record{}, order, domain.ExportFormatCSV, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 1 || payloads[0].Name != "backup.csv" {
		t.Fatalf("expected fallback backup.csv, got %+v", payloadNames(payloads))
	}
}

func TestEncodeCSVNestedReferenceCell(t *testing.T) {
	var enc Encoder
	order := []domain.ContentType{domain.ContentTypeBlogs}

	payloads, err := enc.Encode(sampleResult(), order, domain.ExportFormatCSV, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := csv.NewReader(bytes.NewReader(payloads[0].Data))
	rows, _ := r.ReadAll()
	// header sorted: author, id, title
	if rows[1][0] != `{"email":"ada@example.com","name":"Ada"}` {
		t.Errorf("nested reference cell = %q", rows[1][0])
	}
}

func TestEncodeXML(t *testing.T) {
	var enc Encoder
	order := []domain.ContentType{domain.ContentTypeUsers, domain.ContentTypeBlogs}

	payloads, err := enc.Encode(sampleResult(), order, domain.ExportFormatXML, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payloads) != 1 || payloads[0].Name != "backup.xml" {
		t.Fatalf("expected single backup.xml payload, got %+v", payloadNames(payloads))
	}

	doc := string(payloads[0].Data)
	for _, want := range []string{
		"<export>", "</export>",
		"<meta>", "<generated_at>", "<version>1.0</version>",
		`<users count="2">`, `<blogs count="1">`,
		"<record>", "<name>Ada</name>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("XML artifact missing %q", want)
		}
	}
}

func TestEncodeXMLEmptyInput(t *testing.T) {
	var enc Encoder

	payloads, err := enc.Encode(map[domain.ContentType][]Record{}, nil, domain.ExportFormatXML, "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := string(payloads[0].Data)
	if !strings.Contains(doc, "<export>") || !strings.Contains(doc, "</export>") {
		t.Errorf("empty XML export is not a valid document: %s", doc)
	}
}

func TestEncodeUnsupportedFormat(t *testing.T) {
	var enc Encoder
	if _, err := enc.Encode(sampleResult(), nil, domain.ExportFormat("yaml"), "x"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func payloadNames(payloads []Payload) []string {
	names := make([]string, len(payloads))
	for i, p := range payloads {
		names[i] = p.Name
	}
	return names
}
