// Package pretty renders plans for the terminal as JSON, YAML or aligned tables.
package pretty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v2"
)

const (
	tableTag = "table"
	wideOpt  = "wide"
	// placeholder for empty cells so columns stay aligned when padded with tabs
	emptyCell = "-"
)

// EncodeJSON renders data as indented JSON
func EncodeJSON(data any) (string, error) {
	var buffer bytes.Buffer
	enc := json.NewEncoder(&buffer)
	enc.SetIndent("", "    ")
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("encoding json: %w", err)
	}
	return buffer.String(), nil
}

// EncodeYAML renders data as YAML, honoring the data's json tags and marshalers.
// The JSON is decoded with yaml rather than encoding/json so integers stay integers.
func EncodeYAML(data any) (string, error) {
	jsonStr, err := EncodeJSON(data)
	if err != nil {
		return "", err
	}
	var doc any
	if err := yaml.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return "", fmt.Errorf("encoding yaml: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding yaml: %w", err)
	}
	return string(out), nil
}

type column struct {
	header string
	field  int
}

// columns reads the `table:"Header[,wide]"` tags of T. Wide columns are only kept when wide is set.
func columns[T any](wide bool) []column {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	var cols []column
	for i := range t.NumField() {
		header, opt, _ := strings.Cut(t.Field(i).Tag.Get(tableTag), ",")
		if header == "" || (opt == wideOpt && !wide) {
			continue
		}
		cols = append(cols, column{header: header, field: i})
	}
	return cols
}

// HeadersAndRows extracts table headers and rows from struct data.
// Headers are returned even when data is empty.
func HeadersAndRows[T any](data []T, wide bool) ([]string, [][]string) {
	cols := columns[T](wide)
	headers := make([]string, 0, len(cols))
	for _, col := range cols {
		headers = append(headers, col.header)
	}
	rows := make([][]string, 0, len(data))
	for _, item := range data {
		v := reflect.Indirect(reflect.ValueOf(item))
		row := make([]string, 0, len(cols))
		for _, col := range cols {
			row = append(row, cell(v.Field(col.field)))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func cell(v reflect.Value) string {
	if v.IsZero() && v.Kind() != reflect.Bool && !v.CanInt() {
		return emptyCell
	}
	return fmt.Sprint(v.Interface())
}

// Table renders struct data as a borderless, tab padded table.
//
//	type subnet struct {
//	    ID   string `table:"ID"`
//	    CIDR string `table:"CIDR,wide"`
//	}
//
// Table([]subnet{{"PublicSubnetA1", "10.0.0.0/24"}}, false) prints only the ID column.
func Table[T any](data []T, wide bool) string {
	var out bytes.Buffer
	WriteTable(&out, data, wide)
	return out.String()
}

// WriteTable renders struct data as a table to w
func WriteTable[T any](w io.Writer, data []T, wide bool) {
	headers, rows := HeadersAndRows(data, wide)
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
