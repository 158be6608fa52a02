package globals

// Module names
const AZ_DISKS_MODULE_NAME = "disks"
const AZ_WHOAMI_MODULE_NAME = "whoami"

const AZ_RESOURCE_MANAGER_SCOPE = "https://management.azure.com/.default"

// Disk audit outputs, written as <name>.csv, <name>.json and <name>.xlsx
const AZ_DISK_AUDIT_FILE_NAME = "Tenant-Full-Compute-Disk-Audit"
const AZ_DISK_SUMMARY_FILE_NAME = "Tenant-Disk-Summary"

const AZ_SHEET_COMPUTE_DISK_TYPE = "ComputeType-DiskType"
const AZ_SHEET_DISK_TIER = "DiskTier"
const AZ_SHEET_MIGRATION_PRIORITY = "MigrationPriority"

// Concurrent subscription workers when --goroutines is not set
const AZ_DEFAULT_GOROUTINES = 5

const AZ_AUTH_MODE_CLI = "cli"
const AZ_AUTH_MODE_DEFAULT = "default"
