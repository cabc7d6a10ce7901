package extractors

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// DataExtractor handles structured data files: delimited text, JSON and
// JSON-lines, YAML, XML, INI/TOML-style config, and dBASE tables. Tabular
// inputs become table elements; the rest becomes flat text.
type DataExtractor struct{}

// NewDataExtractor creates a new DataExtractor
func NewDataExtractor() *DataExtractor {
	return &DataExtractor{}
}

func (e *DataExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	ext := strings.ToLower(filepath.Ext(req.Filename))

	var (
		elements []domain.Element
		method   string
		err      error
	)
	switch ext {
	case ".csv":
		elements, err = delimitedTable(req.Data, ',')
		method = "csv"
	case ".tsv":
		elements, err = delimitedTable(req.Data, '\t')
		method = "tsv"
	case ".jsonl", ".ndjson":
		elements, err = jsonLines(req.Data)
		method = "jsonl"
	case ".json":
		elements, err = jsonDocument(req.Data)
		method = "json"
	case ".yaml", ".yml":
		elements, err = yamlDocument(req.Data)
		method = "yaml"
	case ".xml":
		elements, err = xmlDocument(req.Data)
		method = "xml"
	case ".dbf":
		elements, err = dbfTable(req.Data)
		method = "dbf"
	case ".ini", ".toml":
		elements = plainLines(req.Data)
		method = "config"
	default:
		elements, method, err = sniffData(req.Data)
	}
	if err != nil {
		return nil, err
	}

	return &domain.RawDocument{
		Elements:  elements,
		PageCount: 1,
		Method:    method,
	}, nil
}

func (e *DataExtractor) SupportsOCR() bool    { return false }
func (e *DataExtractor) SupportsTables() bool { return true }

// sniffData resolves the syntax when the extension gave no answer: JSON,
// then XML, then delimited text, falling back to plain lines.
func sniffData(data []byte) ([]domain.Element, string, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case json.Valid(trimmed):
		els, err := jsonDocument(data)
		return els, "json", err
	case bytes.HasPrefix(trimmed, []byte("<")):
		els, err := xmlDocument(data)
		return els, "xml", err
	case bytes.ContainsRune(firstDataLine(trimmed), '\t'):
		els, err := delimitedTable(data, '\t')
		return els, "tsv", err
	case bytes.ContainsRune(firstDataLine(trimmed), ','):
		els, err := delimitedTable(data, ',')
		return els, "csv", err
	}
	return plainLines(data), "text", nil
}

func firstDataLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i]
	}
	return data
}

func delimitedTable(data []byte, delim rune) ([]domain.Element, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1 // ragged rows are common in the wild
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse delimited data: %v", domain.ErrExtractionFailed, err)
	}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		if rowHasContent(row) {
			table = append(table, row)
		}
	}
	if len(table) == 0 {
		return nil, nil
	}
	return []domain.Element{{Kind: domain.ElementTable, Table: table}}, nil
}

// jsonDocument renders a JSON payload. A top-level array of flat objects
// becomes a table keyed by the union of its fields; anything else becomes
// indented text.
func jsonDocument(data []byte) ([]domain.Element, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", domain.ErrExtractionFailed, err)
	}

	if arr, ok := value.([]any); ok {
		if table := objectsToTable(arr); table != nil {
			return []domain.Element{{Kind: domain.ElementTable, Table: table}}, nil
		}
	}

	rendered, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: render json: %v", domain.ErrExtractionFailed, err)
	}
	return []domain.Element{{Kind: domain.ElementParagraph, Text: string(rendered)}}, nil
}

func jsonLines(data []byte) ([]domain.Element, error) {
	var records []any
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var value any
		if err := json.Unmarshal(line, &value); err != nil {
			return nil, fmt.Errorf("%w: parse json line: %v", domain.ErrExtractionFailed, err)
		}
		records = append(records, value)
	}
	if table := objectsToTable(records); table != nil {
		return []domain.Element{{Kind: domain.ElementTable, Table: table}}, nil
	}
	rendered, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: render json lines: %v", domain.ErrExtractionFailed, err)
	}
	return []domain.Element{{Kind: domain.ElementParagraph, Text: string(rendered)}}, nil
}

// objectsToTable builds a header+rows matrix from a slice of flat objects.
// Returns nil when the records are not uniformly object-shaped.
func objectsToTable(records []any) [][]string {
	if len(records) == 0 {
		return nil
	}
	keySet := make(map[string]bool)
	objs := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			return nil
		}
		for k := range obj {
			keySet[k] = true
		}
		objs = append(objs, obj)
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := make([][]string, 0, len(objs)+1)
	table = append(table, keys)
	for _, obj := range objs {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = scalarString(obj[k])
		}
		table = append(table, row)
	}
	return table
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func yamlDocument(data []byte) ([]domain.Element, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", domain.ErrExtractionFailed, err)
	}
	rendered, err := yaml.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: render yaml: %v", domain.ErrExtractionFailed, err)
	}
	text := strings.TrimSpace(string(rendered))
	if text == "" || text == "null" {
		return nil, nil
	}
	return []domain.Element{{Kind: domain.ElementParagraph, Text: text}}, nil
}

// xmlDocument collects the character data of an XML stream, one paragraph
// per text-bearing element.
func xmlDocument(data []byte) ([]domain.Element, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var elements []domain.Element
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			if text := strings.TrimSpace(string(cd)); text != "" {
				elements = append(elements, domain.Element{Kind: domain.ElementParagraph, Text: text})
			}
		}
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no text content in xml", domain.ErrExtractionFailed)
	}
	return elements, nil
}

func plainLines(data []byte) []domain.Element {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	return []domain.Element{{Kind: domain.ElementParagraph, Text: text}}
}

// dbfTable parses a dBASE III+ file: a fixed header, 32-byte field
// descriptors terminated by 0x0D, then fixed-width records.
func dbfTable(data []byte) ([]domain.Element, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("%w: dbf header truncated", domain.ErrExtractionFailed)
	}
	recordCount := int(binary.LittleEndian.Uint32(data[4:8]))
	headerSize := int(binary.LittleEndian.Uint16(data[8:10]))
	recordSize := int(binary.LittleEndian.Uint16(data[10:12]))
	if headerSize > len(data) || recordSize == 0 {
		return nil, fmt.Errorf("%w: dbf header invalid", domain.ErrExtractionFailed)
	}

	type dbfField struct {
		name   string
		length int
	}
	var fields []dbfField
	for off := 32; off+32 <= headerSize && data[off] != 0x0d; off += 32 {
		name := strings.TrimRight(string(bytes.TrimRight(data[off:off+11], "\x00")), " ")
		fields = append(fields, dbfField{name: name, length: int(data[off+16])})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: dbf has no fields", domain.ErrExtractionFailed)
	}

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.name
	}
	table := [][]string{header}

	for rec := 0; rec < recordCount; rec++ {
		off := headerSize + rec*recordSize
		if off+recordSize > len(data) {
			break
		}
		if data[off] == '*' { // deleted record
			continue
		}
		pos := off + 1
		row := make([]string, len(fields))
		for i, f := range fields {
			end := pos + f.length
			if end > len(data) {
				end = len(data)
			}
			row[i] = strings.TrimSpace(string(data[pos:end]))
			pos = end
		}
		if rowHasContent(row) {
			table = append(table, row)
		}
	}
	return []domain.Element{{Kind: domain.ElementTable, Table: table}}, nil
}
