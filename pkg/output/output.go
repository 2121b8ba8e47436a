package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/socialhub/socialhub-cli/pkg/config"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
	FormatText  OutputFormat = "text"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer receives all rendered output; tests swap it for a buffer
var Writer io.Writer = color.Output

// GetOutputFormat returns the configured output format
func GetOutputFormat() OutputFormat {
	switch config.GetString("output.format") {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidateOutputFormat checks if format is valid
func ValidateOutputFormat(format string) bool {
	return format == "json" || format == "table" || format == "text"
}

// IsJSON reports whether machine-readable output was requested
func IsJSON() bool {
	return GetOutputFormat() == FormatJSON
}

// Print outputs data in the configured format with optional title
func Print(title string, data interface{}) error {
	if GetOutputFormat() == FormatJSON {
		return printJSON(data)
	}
	return printText(title, data)
}

// PrintList outputs rows of a list. JSON mode prints items as-is; table
// and text modes print the pre-rendered rows under headers.
func PrintList(title string, items interface{}, headers []string, rows [][]string) error {
	switch GetOutputFormat() {
	case FormatJSON:
		if items == nil || (reflect.ValueOf(items).Kind() == reflect.Slice && reflect.ValueOf(items).IsNil()) {
			items = []interface{}{}
		}
		return printJSON(items)
	case FormatTable:
		printTable(headers, rows)
		return nil
	default:
		if title != "" {
			color.New(color.Bold).Fprintf(Writer, "%s\n", title)
		}
		printTable(headers, rows)
		return nil
	}
}

// PrintRecord outputs a single record with keys in sorted order
func PrintRecord(title string, record map[string]interface{}) error {
	switch GetOutputFormat() {
	case FormatJSON:
		return printJSON(record)
	case FormatTable:
		rows := make([][]string, 0, len(record))
		for _, k := range sortedKeys(record) {
			rows = append(rows, []string{k, fmt.Sprintf("%v", record[k])})
		}
		printTable([]string{"Field", "Value"}, rows)
		return nil
	default:
		if title != "" {
			fmt.Fprintf(Writer, "%s:\n", title)
		}
		bold := color.New(color.Bold)
		for _, k := range sortedKeys(record) {
			bold.Fprint(Writer, k+": ")
			fmt.Fprintf(Writer, "%v\n", record[k])
		}
		return nil
	}
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(Writer, msg+"\n", args...)
}

// PrintError prints an error message
func PrintError(msg string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(Writer, "Error: "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(Writer, msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(Writer, "Warning: "+msg+"\n", args...)
}

func sortedKeys(record map[string]interface{}) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printJSON(data interface{}) error {
	s, err := FormatAsPrettyJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(Writer, s)
	return err
}

func printText(title string, data interface{}) error {
	if title != "" {
		fmt.Fprintf(Writer, "%s:\n", title)
	}
	return printJSON(data)
}

func printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(Writer, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)

	if len(headers) > 0 {
		for i, h := range headers {
			bold.Fprint(w, h)
			if i < len(headers)-1 {
				fmt.Fprint(w, "\t")
			}
		}
		fmt.Fprintln(w)
	}

	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprint(w, cell)
			if i < len(row)-1 {
				fmt.Fprint(w, "\t")
			}
		}
		fmt.Fprintln(w)
	}

	w.Flush()
}

// FormatAsJSON converts data to JSON string (convenience function)
func FormatAsJSON(data interface{}) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FormatAsPrettyJSON converts data to pretty JSON string (convenience function)
func FormatAsPrettyJSON(data interface{}) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
