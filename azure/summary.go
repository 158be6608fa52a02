package azure

import (
	"fmt"
	"sort"

	"github.com/audit-scripts/azaudit/globals"
	"github.com/audit-scripts/azaudit/internal"
)

var (
	computeDiskTypeHeader   = []string{"ComputeType", "DiskType", "DiskCount", "TotalSizeGB", "UnmanagedCount"}
	diskTierHeader          = []string{"DiskTier", "DiskCount", "TotalSizeGB"}
	migrationPriorityHeader = []string{"MigrationPriority", "Severity", "DiskCount", "TotalSizeGB"}
)

// shading for the MigrationPriority sheet, keyed on the Severity column
var severityHighlights = []internal.Highlight{
	{Column: "Severity", Value: SeverityHigh, FillColor: "FFC7CE", FontColor: "9C0006"},
	{Column: "Severity", Value: SeverityMedium, FillColor: "FFEB9C", FontColor: "9C5700"},
	{Column: "Severity", Value: SeverityLow, FillColor: "C6EFCE", FontColor: "006100"},
}

type diskAggregate struct {
	count     int
	totalGB   int64
	unmanaged int
}

func (a *diskAggregate) add(r DiskRecord) {
	a.count++
	a.totalGB += int64(r.DiskSizeGB)
	if r.Unmanaged() {
		a.unmanaged++
	}
}

// BuildDiskSummary returns the three workbook sheets. With no records every
// sheet is header-only.
func BuildDiskSummary(records []DiskRecord) []internal.WorkbookSheet {
	return []internal.WorkbookSheet{
		summarizeByComputeAndDiskType(records),
		summarizeByDiskTier(records),
		summarizeByMigrationPriority(records),
	}
}

func summarizeByComputeAndDiskType(records []DiskRecord) internal.WorkbookSheet {
	type key struct {
		computeType ComputeType
		diskType    DiskRole
	}
	groups := make(map[key]*diskAggregate)
	var keys []key
	for _, r := range records {
		k := key{r.ComputeType, r.DiskType}
		if _, ok := groups[k]; !ok {
			groups[k] = new(diskAggregate)
			keys = append(keys, k)
		}
		groups[k].add(r)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].computeType.rank() != keys[j].computeType.rank() {
			return keys[i].computeType.rank() < keys[j].computeType.rank()
		}
		return keys[i].diskType == DiskRoleOS && keys[j].diskType != DiskRoleOS
	})

	sheet := internal.WorkbookSheet{Name: globals.AZ_SHEET_COMPUTE_DISK_TYPE, Header: computeDiskTypeHeader}
	for _, k := range keys {
		g := groups[k]
		sheet.Rows = append(sheet.Rows, []interface{}{string(k.computeType), string(k.diskType), g.count, g.totalGB, g.unmanaged})
	}
	return sheet
}

func summarizeByDiskTier(records []DiskRecord) internal.WorkbookSheet {
	groups := make(map[string]*diskAggregate)
	var tiers []string
	for _, r := range records {
		if _, ok := groups[r.DiskTier]; !ok {
			groups[r.DiskTier] = new(diskAggregate)
			tiers = append(tiers, r.DiskTier)
		}
		groups[r.DiskTier].add(r)
	}
	sort.Strings(tiers)

	sheet := internal.WorkbookSheet{Name: globals.AZ_SHEET_DISK_TIER, Header: diskTierHeader}
	for _, tier := range tiers {
		g := groups[tier]
		sheet.Rows = append(sheet.Rows, []interface{}{tier, g.count, g.totalGB})
	}
	return sheet
}

func summarizeByMigrationPriority(records []DiskRecord) internal.WorkbookSheet {
	order := []MigrationPriority{MigrationPriorityHigh, MigrationPriorityMedium, MigrationPriorityNone}
	groups := make(map[MigrationPriority]*diskAggregate)
	for _, r := range records {
		if _, ok := groups[r.MigrationPriority]; !ok {
			groups[r.MigrationPriority] = new(diskAggregate)
		}
		groups[r.MigrationPriority].add(r)
	}

	sheet := internal.WorkbookSheet{
		Name:       globals.AZ_SHEET_MIGRATION_PRIORITY,
		Header:     migrationPriorityHeader,
		Highlights: severityHighlights,
	}
	for _, p := range order {
		g, ok := groups[p]
		if !ok {
			continue
		}
		sheet.Rows = append(sheet.Rows, []interface{}{string(p), p.Severity(), g.count, g.totalGB})
	}
	return sheet
}

// sheetBody renders sheet rows as strings for the screen tables.
func sheetBody(sheet internal.WorkbookSheet) [][]string {
	body := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = fmt.Sprint(v)
		}
		body = append(body, line)
	}
	return body
}
