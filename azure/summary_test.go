package azure

import (
	"testing"

	"github.com/audit-scripts/azaudit/globals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDiskSummaryEmpty(t *testing.T) {
	sheets := BuildDiskSummary(nil)
	require.Len(t, sheets, 3)
	assert.Equal(t, globals.AZ_SHEET_COMPUTE_DISK_TYPE, sheets[0].Name)
	assert.Equal(t, globals.AZ_SHEET_DISK_TIER, sheets[1].Name)
	assert.Equal(t, globals.AZ_SHEET_MIGRATION_PRIORITY, sheets[2].Name)
	for _, sheet := range sheets {
		assert.NotEmpty(t, sheet.Header)
		assert.Empty(t, sheet.Rows)
	}
	assert.Len(t, sheets[2].Highlights, 3)
}

func TestSummarizeByMigrationPriorityOrder(t *testing.T) {
	records := []DiskRecord{
		newDiskRecord(DiskRecord{ComputeType: ComputeTypeVM, DiskSizeGB: 10, Backing: ManagedBacking{DiskID: "a"}}),
		newDiskRecord(DiskRecord{ComputeType: ComputeTypeVM, DiskSizeGB: 20, Backing: UnmanagedBacking{}}),
		newDiskRecord(DiskRecord{ComputeType: ComputeTypeVMSS, DiskSizeGB: 30, Backing: UnmanagedBacking{}}),
		newDiskRecord(DiskRecord{ComputeType: ComputeTypeVMSS, DiskSizeGB: 40, Backing: UnmanagedBacking{}}),
	}
	sheet := summarizeByMigrationPriority(records)
	assert.Equal(t, [][]interface{}{
		{"High - VMSS Unmanaged", "High", 2, int64(70)},
		{"Medium - VM Unmanaged", "Medium", 1, int64(20)},
		{"None", "Low", 1, int64(10)},
	}, sheet.Rows)

	assert.Equal(t, [][]string{
		{"High - VMSS Unmanaged", "High", "2", "70"},
		{"Medium - VM Unmanaged", "Medium", "1", "20"},
		{"None", "Low", "1", "10"},
	}, sheetBody(sheet))
}

func TestSummarizeByComputeAndDiskTypeUnmanagedCount(t *testing.T) {
	records := []DiskRecord{
		newDiskRecord(DiskRecord{ComputeType: ComputeTypeVMSS, DiskType: DiskRoleData, DiskSizeGB: 5, Backing: UnmanagedBacking{}}),
		newDiskRecord(DiskRecord{ComputeType: ComputeTypeVMSS, DiskType: DiskRoleData, DiskSizeGB: 5, Backing: ManagedBacking{DiskID: "x"}}),
		newDiskRecord(DiskRecord{ComputeType: ComputeTypeVM, DiskType: DiskRoleOS, DiskSizeGB: 1, Backing: ManagedBacking{DiskID: "y"}}),
	}
	sheet := summarizeByComputeAndDiskType(records)
	assert.Equal(t, [][]interface{}{
		{"VM", "OS", 1, int64(1), 0},
		{"VMSS", "Data", 2, int64(10), 1},
	}, sheet.Rows)
}
