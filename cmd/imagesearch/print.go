package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/anime-shed/image-search-go/pkg/models"
)

// maxValueWidth bounds tag values in image listings.
const maxValueWidth = 60

// printResult writes v as JSON under --json, otherwise calls text.
func printResult(cmd *cobra.Command, v interface{}, text func()) error {
	if !outputJSON {
		text()
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func printImage(w io.Writer, img models.ImageResponse) {
	fmt.Fprintf(w, "%s  %s\n", img.ID, img.Path)

	names := make([]string, 0, len(img.Tags))
	for name := range img.Tags {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		v := img.Tags[name]
		if v == nil {
			continue
		}
		fmt.Fprintf(tw, "    %s\t%s\n", name, formatValue(v, maxValueWidth))
	}
	tw.Flush()
}

func printPass(w io.Writer, resp *models.PassResponse) {
	fmt.Fprintf(w, "pass %s: %d rows, %d units, %d written, %d failed in %dms\n",
		resp.PassID, resp.Rows, resp.Units, resp.Writes, resp.Failures, resp.DurationMs)
	if resp.Error != "" {
		fmt.Fprintf(w, "first failure: %s\n", resp.Error)
	}
}

func printTaggers(w io.Writer, taggers []models.TaggerInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tCOLUMN\tLITERALS\tDISTANCE")
	for _, t := range taggers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.Kind, t.Column, yesNo(t.ParseLiteral), yesNo(t.Distance))
	}
	tw.Flush()
}

// formatValue renders a tag value, eliding past width runes when width > 0.
func formatValue(v interface{}, width int) string {
	var s string
	switch val := v.(type) {
	case float64:
		s = strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		s = strconv.Quote(val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatValue(e, 0)
		}
		s = "[" + strings.Join(parts, ", ") + "]"
	case []float64:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = strconv.FormatFloat(e, 'g', -1, 64)
		}
		s = "[" + strings.Join(parts, ", ") + "]"
	default:
		s = fmt.Sprint(val)
	}

	if r := []rune(s); width > 0 && len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// splitAddr splits host:port, keeping defPort when the port is missing.
func splitAddr(addr, defPort string) (string, string) {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return addr, defPort
	}
	host, port := addr[:i], addr[i+1:]
	if port == "" {
		port = defPort
	}
	return strings.Trim(host, "[]"), port
}
