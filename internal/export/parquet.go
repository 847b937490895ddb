package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetSchemaField struct {
	Tag string `json:"Tag"`
}

type parquetSchema struct {
	Tag    string               `json:"Tag"`
	Fields []parquetSchemaField `json:"Fields"`
}

// MarshalParquet encodes the table as a snappy-compressed parquet file.
// Column names are reduced to lowercase identifiers.
func MarshalParquet(t Table) ([]byte, error) {
	names := ParquetColumnNames(t.Columns)
	schema := parquetSchema{Tag: "name=gymtrack_export, repetitiontype=REQUIRED"}
	for i, c := range t.Columns {
		schema.Fields = append(schema.Fields, parquetSchemaField{Tag: parquetTag(names[i], c.Type)})
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parquet schema: %w", err)
	}

	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewJSONWriter(string(schemaJSON), fw, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range t.Rows {
		obj := make(map[string]any, len(names))
		for i, name := range names {
			if i < len(row) {
				obj[inName(name)] = row[i]
			} else {
				obj[inName(name)] = nil
			}
		}
		line, err := json.Marshal(obj)
		if err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("failed to encode parquet row: %w", err)
		}
		if err := pw.Write(string(line)); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// WriteParquet writes the parquet encoding of t to w.
func WriteParquet(w io.Writer, t Table) error {
	data, err := MarshalParquet(t)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func parquetTag(name string, typ ColumnType) string {
	prefix := "name=" + name + ", inname=" + inName(name)
	switch typ {
	case ColumnInt:
		return prefix + ", type=INT64, repetitiontype=OPTIONAL"
	case ColumnFloat:
		return prefix + ", type=DOUBLE, repetitiontype=OPTIONAL"
	default:
		return prefix + ", type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"
	}
}

// The JSON writer matches record keys against the in-memory field name.
func inName(name string) string {
	return strings.ToUpper(name[:1]) + name[1:]
}

// ParquetColumnNames sanitizes column names and makes them unique.
func ParquetColumnNames(cols []Column) []string {
	out := make([]string, len(cols))
	seen := map[string]int{}
	for i, c := range cols {
		name := sanitizeName(c.Name)
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || !unicode.IsLetter(rune(out[0])) {
		out = "c_" + out
	}
	return out
}
