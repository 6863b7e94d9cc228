package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Load reads a mapping file. Files ending in .yaml/.yml are read as YAML,
// everything else as CSV.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mappings: %w", err)
	}
	defer f.Close()

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		records, err = ParseYAML(f)
	default:
		records, err = ParseCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewTable(records)
}

// NormalizeHeader lower-cases the column names, replaces spaces with dashes
// and prefixes every column after the first "output" column with "o-"
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	prefix := false
	for i, name := range header {
		name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
		out[i] = name
		if prefix {
			out[i] = "o-" + name
		}
		if strings.Contains(name, "output") {
			prefix = true
		}
	}
	return out
}

var requiredColumns = []string{"bank", "type", "channel", "control", "output-device", "o-channel", "o-control"}

// ParseCSV reads mapping records from CSV with a header row
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty mapping file", ErrInvalidRecord)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int)
	for i, name := range NormalizeHeader(header) {
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidRecord, name)
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec, err := recordFromFields(field)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordFromFields(field func(string) string) (Record, error) {
	var rec Record
	var err error

	if rec.Bank, err = atoiDefault(field("bank"), 0); err != nil {
		return rec, fmt.Errorf("%w: bank: %v", ErrInvalidRecord, err)
	}
	if rec.InputType, err = ParseMessageType(field("type")); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if rec.InputChannel, err = strconv.Atoi(field("channel")); err != nil {
		return rec, fmt.Errorf("%w: channel: %v", ErrInvalidRecord, err)
	}
	if rec.InputControl, err = strconv.Atoi(field("control")); err != nil {
		return rec, fmt.Errorf("%w: control: %v", ErrInvalidRecord, err)
	}

	rec.InputDevice = field("input-device")
	rec.Description = field("description")
	rec.OutputDevice = field("output-device")
	rec.OutputControl = field("o-control")
	rec.OutputDescription = field("o-description")

	rec.OutputType = rec.InputType
	if s := field("o-type"); s != "" {
		if rec.OutputType, err = ParseMessageType(s); err != nil {
			return rec, fmt.Errorf("%w: o-type: %v", ErrInvalidRecord, err)
		}
	}
	if rec.OutputChannel, err = atoiDefault(field("o-channel"), 0); err != nil {
		return rec, fmt.Errorf("%w: o-channel: %v", ErrInvalidRecord, err)
	}
	return rec, nil
}

func atoiDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type yamlFile struct {
	Mappings []Record `yaml:"mappings"`
}

// ParseYAML reads mapping records from a YAML document with a top-level
// "mappings" list. Missing output types default to the input type.
func ParseYAML(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc yamlFile
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	for i := range doc.Mappings {
		if doc.Mappings[i].OutputType == TypeUnknown {
			doc.Mappings[i].OutputType = doc.Mappings[i].InputType
		}
	}
	return doc.Mappings, nil
}
