package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/gracehq/chms/internal/domain"
)

func TestPackagerEntriesMatchPayloads(t *testing.T) {
	payloads := []Payload{
		{Name: "blogs.csv", Data: []byte("id,title\nb1,Welcome\n")},
		{Name: "sermons.csv", Data: []byte("id,title\ns1,Grace\n")},
	}

	var buf bytes.Buffer
	var p Packager
	if err := p.Pack(&buf, payloads); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("output is not a valid zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive entries = %d, want 2", len(zr.File))
	}

	for i, p := range payloads {
		entry := zr.File[i]
		if entry.Name != p.Name {
			t.Errorf("entry[%d] = %q, want %q", i, entry.Name, p.Name)
		}
		rc, err := entry.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", entry.Name, err)
		}
		if !bytes.Equal(data, p.Data) {
			t.Errorf("entry %s: decompressed bytes differ from payload", entry.Name)
		}
	}
}

func TestPackagerCompressionRoundTripsEncoderOutput(t *testing.T) {
	var enc Encoder
	order := []domain.ContentType{domain.ContentTypeUsers, domain.ContentTypeBlogs}

	payloads, err := enc.Encode(sampleResult(), order, domain.ExportFormatCSV, "backup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	var p Packager
	if err := p.Pack(&buf, payloads); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("output is not a valid zip: %v", err)
	}

	extracted := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry: %v", err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		extracted[f.Name] = data
	}

	for _, payload := range payloads {
		if !bytes.Equal(extracted[payload.Name], payload.Data) {
			t.Errorf("entry %s does not match the uncompressed encoder output", payload.Name)
		}
	}
}

func TestPackagerEmptyPayloadSet(t *testing.T) {
	var buf bytes.Buffer
	var p Packager
	if err := p.Pack(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		t.Errorf("empty archive is not valid: %v", err)
	}
}
