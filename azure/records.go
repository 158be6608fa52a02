package azure

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

type ComputeType string

const (
	ComputeTypeVM   ComputeType = "VM"
	ComputeTypeVMSS ComputeType = "VMSS"
	ComputeTypeNone ComputeType = "None"
)

func (c ComputeType) rank() int {
	switch c {
	case ComputeTypeVM:
		return 0
	case ComputeTypeVMSS:
		return 1
	default:
		return 2
	}
}

type DiskRole string

const (
	DiskRoleOS   DiskRole = "OS"
	DiskRoleData DiskRole = "Data"
)

type AttachmentType string

const (
	AttachmentAttached   AttachmentType = "Attached"
	AttachmentUnattached AttachmentType = "Unattached"
)

type MigrationStatus string

const (
	MigrationStatusManaged   MigrationStatus = "Managed"
	MigrationStatusUnmanaged MigrationStatus = "Unmanaged - Needs Migration"
)

type MigrationPriority string

const (
	MigrationPriorityHigh   MigrationPriority = "High - VMSS Unmanaged"
	MigrationPriorityMedium MigrationPriority = "Medium - VM Unmanaged"
	MigrationPriorityNone   MigrationPriority = "None"
)

const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

// Severity maps a priority label to the level used for workbook shading.
func (p MigrationPriority) Severity() string {
	switch p {
	case MigrationPriorityHigh:
		return SeverityHigh
	case MigrationPriorityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

const (
	unknownValue = "Unknown"
	unmanagedSku = "Unmanaged"
)

// DiskBacking is either a ManagedBacking or an UnmanagedBacking.
type DiskBacking interface {
	migrationStatus() MigrationStatus
}

type ManagedBacking struct {
	DiskID string
}

func (ManagedBacking) migrationStatus() MigrationStatus { return MigrationStatusManaged }

type UnmanagedBacking struct {
	VhdURI         string
	StorageAccount string
}

func (UnmanagedBacking) migrationStatus() MigrationStatus { return MigrationStatusUnmanaged }

func migrationPriority(computeType ComputeType, status MigrationStatus) MigrationPriority {
	if status != MigrationStatusUnmanaged {
		return MigrationPriorityNone
	}
	switch computeType {
	case ComputeTypeVMSS:
		return MigrationPriorityHigh
	case ComputeTypeVM:
		return MigrationPriorityMedium
	default:
		return MigrationPriorityNone
	}
}

type DiskRecord struct {
	TenantID          string
	SubscriptionName  string
	SubscriptionID    string
	ResourceGroup     string
	ComputeType       ComputeType
	ComputeName       string
	InstanceID        string
	Location          string
	DiskType          DiskRole
	DiskName          string
	DiskSizeGB        int32
	DiskTier          string
	Sku               string
	EncryptionType    string
	Backing           DiskBacking
	AttachmentType    AttachmentType
	MigrationStatus   MigrationStatus
	MigrationPriority MigrationPriority
}

var DiskRecordHeader = []string{
	"TenantId",
	"SubscriptionName",
	"SubscriptionId",
	"ResourceGroup",
	"ComputeType",
	"ComputeName",
	"InstanceId",
	"Location",
	"DiskType",
	"DiskName",
	"DiskSizeGB",
	"DiskTier",
	"Sku",
	"EncryptionType",
	"ManagedDiskId",
	"VhdUri",
	"StorageAccount",
	"AttachmentType",
	"MigrationStatus",
	"MigrationPriority",
}

// newDiskRecord fills the status and priority columns from the backing and
// compute type so they can never disagree.
func newDiskRecord(r DiskRecord) DiskRecord {
	if r.Backing == nil {
		r.Backing = ManagedBacking{}
	}
	r.MigrationStatus = r.Backing.migrationStatus()
	r.MigrationPriority = migrationPriority(r.ComputeType, r.MigrationStatus)
	return r
}

func (r DiskRecord) ManagedDiskID() string {
	if b, ok := r.Backing.(ManagedBacking); ok {
		return b.DiskID
	}
	return ""
}

func (r DiskRecord) VhdURI() string {
	if b, ok := r.Backing.(UnmanagedBacking); ok {
		return b.VhdURI
	}
	return ""
}

func (r DiskRecord) StorageAccount() string {
	if b, ok := r.Backing.(UnmanagedBacking); ok {
		return b.StorageAccount
	}
	return ""
}

func (r DiskRecord) Unmanaged() bool {
	_, ok := r.Backing.(UnmanagedBacking)
	return ok
}

// Row flattens the record in DiskRecordHeader order.
func (r DiskRecord) Row() []string {
	return []string{
		r.TenantID,
		r.SubscriptionName,
		r.SubscriptionID,
		r.ResourceGroup,
		string(r.ComputeType),
		r.ComputeName,
		r.InstanceID,
		r.Location,
		string(r.DiskType),
		r.DiskName,
		strconv.FormatInt(int64(r.DiskSizeGB), 10),
		r.DiskTier,
		r.Sku,
		r.EncryptionType,
		r.ManagedDiskID(),
		r.VhdURI(),
		r.StorageAccount(),
		string(r.AttachmentType),
		string(r.MigrationStatus),
		string(r.MigrationPriority),
	}
}

// DiskRecordCollector is the only state shared between subscription workers.
type DiskRecordCollector struct {
	mu      sync.Mutex
	records []DiskRecord
}

func (c *DiskRecordCollector) Append(records ...DiskRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, records...)
}

func (c *DiskRecordCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns a sorted copy so output does not depend on worker scheduling.
func (c *DiskRecordCollector) Records() []DiskRecord {
	c.mu.Lock()
	records := make([]DiskRecord, len(c.records))
	copy(records, c.records)
	c.mu.Unlock()

	sort.SliceStable(records, func(i, j int) bool {
		return recordLess(records[i], records[j])
	})
	return records
}

func recordLess(a, b DiskRecord) bool {
	if a.SubscriptionName != b.SubscriptionName {
		return a.SubscriptionName < b.SubscriptionName
	}
	if a.SubscriptionID != b.SubscriptionID {
		return a.SubscriptionID < b.SubscriptionID
	}
	if a.ComputeType.rank() != b.ComputeType.rank() {
		return a.ComputeType.rank() < b.ComputeType.rank()
	}
	if !strings.EqualFold(a.ComputeName, b.ComputeName) {
		return strings.ToLower(a.ComputeName) < strings.ToLower(b.ComputeName)
	}
	if a.InstanceID != b.InstanceID {
		return instanceLess(a.InstanceID, b.InstanceID)
	}
	if a.DiskType != b.DiskType {
		return a.DiskType == DiskRoleOS
	}
	return strings.ToLower(a.DiskName) < strings.ToLower(b.DiskName)
}

// numeric instance ids sort as numbers so "10" follows "9"
func instanceLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
