package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func printProperties(w io.Writer, items []Property) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRICE\tAREA\tDISTANCE\tLOCATION")
	for _, p := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%s\t%s\t%s\n",
			p.ID,
			truncate(p.Title, 40),
			p.Category,
			p.Price,
			optFloat(p.Area, "%.0f"),
			optFloat(p.DistanceKm, "%.2f km"),
			strings.Join(p.LocationPath, " / "),
		)
	}
	_ = tw.Flush()
}

func printSearchPage(w io.Writer, page *SearchPage) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		printProperties(w, page.Items)
		fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", page.Pagination.Page, page.Pagination.TotalPages, page.Pagination.Total)
	}
	if len(page.AppliedFilters) > 0 {
		fmt.Fprintf(w, "Filters: %s\n", strings.Join(page.AppliedFilters, ", "))
	}
	for _, warn := range page.Warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", warn.Field, warn.Message)
	}
	for _, s := range page.Suggestions {
		fmt.Fprintf(w, "suggestion: %s (%d results)\n", s.Description, s.Count)
	}
}

func printSavedSearches(w io.Writer, list []SavedSearch) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No saved searches.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNOTIFY\tUPDATED")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", s.ID, truncate(s.Name, 40), s.IsActive, s.UpdatedAt)
	}
	_ = tw.Flush()
}

func printSavedSearch(w io.Writer, s *SavedSearch) error {
	fmt.Fprintf(w, "ID:      %s\n", s.ID)
	fmt.Fprintf(w, "Name:    %s\n", s.Name)
	fmt.Fprintf(w, "Notify:  %t\n", s.IsActive)
	fmt.Fprintf(w, "Updated: %s\n", s.UpdatedAt)
	fmt.Fprintln(w, "Criteria:")
	return printJSON(w, s.Criteria)
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
