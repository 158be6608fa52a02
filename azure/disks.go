package azure

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/audit-scripts/azaudit/globals"
	"github.com/audit-scripts/azaudit/internal"
	"github.com/aws/smithy-go/ptr"
	"github.com/friendsofgo/errors"
	"github.com/patrickmn/go-cache"
	"github.com/schollz/progressbar/v3"
)

type AzDisksModule struct {
	AzClient *internal.AzureClient
	Log      internal.Logger

	// progress bar destination, os.Stderr when nil
	ProgressWriter io.Writer
}

// columns printed to screen at verbosity 3; files always get every column
var diskTableCols = []string{
	"SubscriptionName",
	"ComputeType",
	"ComputeName",
	"InstanceId",
	"DiskType",
	"DiskName",
	"DiskSizeGB",
	"DiskTier",
	"Sku",
	"StorageAccount",
	"MigrationStatus",
	"MigrationPriority",
}

func (m *AzDisksModule) AzDisksCommand(ctx context.Context) error {
	m.Log.Infof("Enumerating subscriptions for tenant %s", m.AzClient.TenantID)

	// a default domain resolves to the tenant id used for filtering and output
	tenant, err := populateTenant(ctx, m.AzClient, m.AzClient.TenantID)
	if err != nil {
		return err
	}
	tenantID, subs := tenant.ID, tenant.Subscriptions
	if len(subs) == 0 {
		m.Log.Warnf("No subscriptions visible in tenant %s", tenantID)
	} else {
		m.Log.Infof("Auditing disks in %d subscription(s) with %d worker(s)", len(subs), m.workers())
	}

	records, err := m.collect(ctx, subs)
	if err != nil {
		return err
	}
	m.Log.Successf("Collected %d disk record(s)", len(records))

	return m.writeOutput(tenantID, records)
}

func (m *AzDisksModule) workers() int {
	if m.AzClient.Goroutines < 1 {
		return globals.AZ_DEFAULT_GOROUTINES
	}
	return m.AzClient.Goroutines
}

// collect runs one worker per subscription, at most workers() at a time. The
// first failure cancels the remaining workers and no records are returned.
func (m *AzDisksModule) collect(ctx context.Context, subs []SubscriptionInfo) ([]DiskRecord, error) {
	if len(subs) == 0 {
		return nil, ctx.Err()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progressWriter := m.ProgressWriter
	if progressWriter == nil {
		progressWriter = os.Stderr
	}
	bar := progressbar.NewOptions(len(subs),
		progressbar.OptionSetWriter(progressWriter),
		progressbar.OptionSetDescription("subscriptions"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	collector := new(DiskRecordCollector)
	wg := new(sync.WaitGroup)
	semaphore := make(chan struct{}, m.workers())

	var (
		errOnce  sync.Once
		firstErr error
	)

	for _, sub := range subs {
		wg.Add(1)
		go func(sub SubscriptionInfo) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-semaphore }()
			if ctx.Err() != nil {
				return
			}

			records, err := m.auditSubscription(ctx, sub)
			if err != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("subscription %s (%s): %w", sub.Name, sub.ID, err)
					cancel()
				})
				return
			}
			collector.Append(records...)
			_ = bar.Add(1)
		}(sub)
	}
	wg.Wait()
	_ = bar.Finish()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collector.Records(), nil
}

func (m *AzDisksModule) auditSubscription(ctx context.Context, sub SubscriptionInfo) ([]DiskRecord, error) {
	vms, err := getVirtualMachines(ctx, m.AzClient, sub.ID)
	if err != nil {
		return nil, err
	}

	scaleSets, err := getScaleSets(ctx, m.AzClient, sub.ID)
	if err != nil {
		return nil, err
	}
	type scaleSetMembers struct {
		scaleSet      *armcompute.VirtualMachineScaleSet
		resourceGroup string
		instances     []*armcompute.VirtualMachineScaleSetVM
	}
	var members []scaleSetMembers
	for _, ss := range scaleSets {
		if ss == nil {
			continue
		}
		// flexible members are ordinary VMs and come back from the VM listing
		if ss.Properties != nil && ss.Properties.OrchestrationMode != nil && *ss.Properties.OrchestrationMode == armcompute.OrchestrationModeFlexible {
			continue
		}
		rg := resourceGroupFromID(ptr.ToString(ss.ID))
		instances, err := getScaleSetVMs(ctx, m.AzClient, sub.ID, rg, ptr.ToString(ss.Name))
		if err != nil {
			return nil, err
		}
		members = append(members, scaleSetMembers{scaleSet: ss, resourceGroup: rg, instances: instances})
	}

	disks, err := getDisks(ctx, m.AzClient, sub.ID)
	if err != nil {
		return nil, err
	}

	skus, err := m.storageAccountSKUs(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	c := newDiskClassifier(sub.TenantID, sub, disks, skus, &m.Log)
	for _, vm := range vms {
		c.addVM(vm)
	}
	for _, member := range members {
		for _, instance := range member.instances {
			c.addScaleSetInstance(member.scaleSet, member.resourceGroup, instance)
		}
	}
	c.addOrphans()
	return c.records, nil
}

// storageAccountSKUs maps lower-cased account name to SKU name.
func (m *AzDisksModule) storageAccountSKUs(ctx context.Context, subscriptionID string) (map[string]string, error) {
	key := internal.CacheKey(subscriptionID, "storage-accounts", "sku")
	if cached, found := internal.Cache.Get(key); found {
		if skus, ok := cached.(map[string]string); ok {
			return skus, nil
		}
	}

	accounts, err := getStorageAccounts(ctx, m.AzClient, subscriptionID)
	if err != nil {
		return nil, err
	}
	skus := make(map[string]string, len(accounts))
	for _, account := range accounts {
		if account == nil || account.Name == nil {
			continue
		}
		sku := unknownValue
		if account.SKU != nil && account.SKU.Name != nil {
			sku = string(*account.SKU.Name)
		}
		skus[strings.ToLower(*account.Name)] = sku
	}
	internal.Cache.Set(key, skus, cache.DefaultExpiration)
	return skus, nil
}

type diskOwner struct {
	computeType   ComputeType
	computeName   string
	instanceID    string
	resourceGroup string
	location      string
}

// diskClassifier turns the listings of one subscription into records. It is
// owned by a single worker.
type diskClassifier struct {
	tenantID    string
	sub         SubscriptionInfo
	disks       []*armcompute.Disk
	diskByID    map[string]*armcompute.Disk
	storageSKUs map[string]string
	referenced  map[string]struct{}
	log         *internal.Logger
	records     []DiskRecord
}

func newDiskClassifier(tenantID string, sub SubscriptionInfo, disks []*armcompute.Disk, storageSKUs map[string]string, log *internal.Logger) *diskClassifier {
	c := &diskClassifier{
		tenantID:    tenantID,
		sub:         sub,
		diskByID:    make(map[string]*armcompute.Disk, len(disks)),
		storageSKUs: storageSKUs,
		referenced:  make(map[string]struct{}),
		log:         log,
	}
	for _, d := range disks {
		if d == nil || d.ID == nil {
			continue
		}
		c.disks = append(c.disks, d)
		c.diskByID[strings.ToLower(*d.ID)] = d
	}
	return c
}

func (c *diskClassifier) addVM(vm *armcompute.VirtualMachine) {
	if vm == nil {
		return
	}
	owner := diskOwner{
		computeType:   ComputeTypeVM,
		computeName:   ptr.ToString(vm.Name),
		resourceGroup: resourceGroupFromID(ptr.ToString(vm.ID)),
		location:      ptr.ToString(vm.Location),
	}
	if vm.Properties == nil {
		return
	}
	if ss := vm.Properties.VirtualMachineScaleSet; ss != nil && ptr.ToString(ss.ID) != "" {
		owner.computeType = ComputeTypeVMSS
		owner.computeName = resourceNameFromID(*ss.ID)
		owner.instanceID = ptr.ToString(vm.Name)
	}
	c.addStorageProfile(owner, vm.Properties.StorageProfile)
}

func (c *diskClassifier) addScaleSetInstance(scaleSet *armcompute.VirtualMachineScaleSet, resourceGroup string, instance *armcompute.VirtualMachineScaleSetVM) {
	if scaleSet == nil || instance == nil || instance.Properties == nil {
		return
	}
	owner := diskOwner{
		computeType:   ComputeTypeVMSS,
		computeName:   ptr.ToString(scaleSet.Name),
		instanceID:    ptr.ToString(instance.InstanceID),
		resourceGroup: resourceGroup,
		location:      ptr.ToString(instance.Location),
	}
	if owner.location == "" {
		owner.location = ptr.ToString(scaleSet.Location)
	}
	c.addStorageProfile(owner, instance.Properties.StorageProfile)
}

func (c *diskClassifier) addStorageProfile(owner diskOwner, profile *armcompute.StorageProfile) {
	if profile == nil {
		return
	}
	if osDisk := profile.OSDisk; osDisk != nil {
		c.addReference(owner, DiskRoleOS, osDisk.Name, osDisk.DiskSizeGB, osDisk.ManagedDisk, osDisk.Vhd)
	}
	for _, dataDisk := range profile.DataDisks {
		if dataDisk == nil {
			continue
		}
		c.addReference(owner, DiskRoleData, dataDisk.Name, dataDisk.DiskSizeGB, dataDisk.ManagedDisk, dataDisk.Vhd)
	}
}

func (c *diskClassifier) baseRecord(owner diskOwner, role DiskRole, name string, sizeGB int32) DiskRecord {
	return DiskRecord{
		TenantID:         c.tenantID,
		SubscriptionName: c.sub.Name,
		SubscriptionID:   c.sub.ID,
		ResourceGroup:    owner.resourceGroup,
		ComputeType:      owner.computeType,
		ComputeName:      owner.computeName,
		InstanceID:       owner.instanceID,
		Location:         owner.location,
		DiskType:         role,
		DiskName:         name,
		DiskSizeGB:       sizeGB,
		AttachmentType:   AttachmentAttached,
	}
}

func (c *diskClassifier) addReference(owner diskOwner, role DiskRole, name *string, sizeGB *int32, managed *armcompute.ManagedDiskParameters, vhd *armcompute.VirtualHardDisk) {
	record := c.baseRecord(owner, role, ptr.ToString(name), ptr.ToInt32(sizeGB))

	if managed != nil {
		diskID := ptr.ToString(managed.ID)
		record.Backing = ManagedBacking{DiskID: diskID}
		if diskID != "" {
			c.referenced[strings.ToLower(diskID)] = struct{}{}
		}
		if disk, ok := c.diskByID[strings.ToLower(diskID)]; ok && diskID != "" {
			record.Sku = diskSku(disk)
			record.DiskTier = diskTier(disk)
			record.EncryptionType = diskEncryption(disk)
			if size := diskSizeGB(disk); size > 0 {
				record.DiskSizeGB = size
			}
			if record.DiskName == "" {
				record.DiskName = ptr.ToString(disk.Name)
			}
		} else {
			record.Sku = unknownValue
			if managed.StorageAccountType != nil {
				record.Sku = string(*managed.StorageAccountType)
			}
			record.DiskTier = unknownValue
			record.EncryptionType = unknownValue
			c.log.Warnf("%s %s: managed disk %s not found in subscription %s disk listing", owner.computeType, owner.displayName(), record.DiskName, c.sub.ID)
		}
		c.records = append(c.records, newDiskRecord(record))
		return
	}

	vhdURI := ""
	if vhd != nil {
		vhdURI = ptr.ToString(vhd.URI)
	}
	account := storageAccountFromURI(vhdURI)
	record.Backing = UnmanagedBacking{VhdURI: vhdURI, StorageAccount: account}
	record.Sku = unmanagedSku
	record.EncryptionType = unknownValue
	record.DiskTier = unknownValue
	switch {
	case vhdURI == "":
		c.log.Warnf("%s %s: unmanaged %s disk %s has no VHD URI, tier is %s", owner.computeType, owner.displayName(), role, record.DiskName, unknownValue)
	case account == "":
		c.log.Warnf("%s %s: cannot read storage account from VHD URI %s, tier is %s", owner.computeType, owner.displayName(), vhdURI, unknownValue)
	default:
		if sku, ok := c.storageSKUs[account]; ok {
			record.DiskTier = sku
		} else {
			c.log.Warnf("%s %s: storage account %s not found in subscription %s, tier is %s", owner.computeType, owner.displayName(), account, c.sub.ID, unknownValue)
		}
	}
	c.records = append(c.records, newDiskRecord(record))
}

// addOrphans emits one record for every listed disk no compute resource referenced.
func (c *diskClassifier) addOrphans() {
	for _, disk := range c.disks {
		diskID := ptr.ToString(disk.ID)
		if _, ok := c.referenced[strings.ToLower(diskID)]; ok {
			continue
		}
		role := DiskRoleData
		if disk.Properties != nil && disk.Properties.OSType != nil {
			role = DiskRoleOS
		}
		owner := diskOwner{
			computeType:   ComputeTypeNone,
			resourceGroup: resourceGroupFromID(diskID),
			location:      ptr.ToString(disk.Location),
		}
		record := c.baseRecord(owner, role, ptr.ToString(disk.Name), diskSizeGB(disk))
		record.AttachmentType = AttachmentUnattached
		record.Backing = ManagedBacking{DiskID: diskID}
		record.Sku = diskSku(disk)
		record.DiskTier = diskTier(disk)
		record.EncryptionType = diskEncryption(disk)
		c.records = append(c.records, newDiskRecord(record))
	}
}

func (o diskOwner) displayName() string {
	if o.instanceID != "" {
		return fmt.Sprintf("%s/%s", o.computeName, o.instanceID)
	}
	return o.computeName
}

func diskSku(disk *armcompute.Disk) string {
	if disk.SKU != nil && disk.SKU.Name != nil {
		return string(*disk.SKU.Name)
	}
	return unknownValue
}

// diskTier prefers the SKU tier and falls back to the SKU name prefix,
// Premium_LRS -> Premium.
func diskTier(disk *armcompute.Disk) string {
	if disk.SKU != nil && ptr.ToString(disk.SKU.Tier) != "" {
		return *disk.SKU.Tier
	}
	return tierFromSku(diskSku(disk))
}

func tierFromSku(sku string) string {
	if sku == "" || sku == unknownValue {
		return unknownValue
	}
	if i := strings.Index(sku, "_"); i > 0 {
		return sku[:i]
	}
	return sku
}

func diskEncryption(disk *armcompute.Disk) string {
	if disk.Properties != nil && disk.Properties.Encryption != nil && disk.Properties.Encryption.Type != nil {
		return string(*disk.Properties.Encryption.Type)
	}
	return unknownValue
}

func diskSizeGB(disk *armcompute.Disk) int32 {
	if disk.Properties != nil {
		return ptr.ToInt32(disk.Properties.DiskSizeGB)
	}
	return 0
}

// storageAccountFromURI returns the first DNS label of the VHD host, lower-cased.
func storageAccountFromURI(vhdURI string) string {
	if vhdURI == "" {
		return ""
	}
	u, err := url.Parse(vhdURI)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	return strings.ToLower(strings.SplitN(host, ".", 2)[0])
}

func (m *AzDisksModule) writeOutput(tenantID string, records []DiskRecord) error {
	body := make([][]string, 0, len(records))
	for _, r := range records {
		body = append(body, r.Row())
	}

	sheets := BuildDiskSummary(records)
	tables := []internal.TableFile{{
		Name:            globals.AZ_DISK_AUDIT_FILE_NAME,
		Header:          DiskRecordHeader,
		Body:            body,
		TableCols:       diskTableCols,
		ScreenVerbosity: 3,
	}}
	for _, sheet := range sheets {
		tables = append(tables, internal.TableFile{
			Name:            sheet.Name,
			Header:          sheet.Header,
			Body:            sheetBody(sheet),
			ScreenVerbosity: 2,
			SkipFiles:       true,
		})
	}

	o := internal.OutputClient{
		Verbosity:        m.AzClient.Verbosity,
		CallingModule:    globals.AZ_DISKS_MODULE_NAME,
		PrefixIdentifier: tenantID,
		Table: internal.TableClient{
			Wrap:          m.AzClient.WrapTable,
			DirectoryName: m.AzClient.OutputDirectory,
			WriteJSON:     m.AzClient.WriteJSON,
		},
	}
	workbook := &internal.Workbook{Name: globals.AZ_DISK_SUMMARY_FILE_NAME, Sheets: sheets}
	if _, err := o.WriteFullOutput(tables, workbook); err != nil {
		return errors.Wrap(err, "could not write disk audit output")
	}
	return nil
}

var getVirtualMachines = getVirtualMachinesOriginal

func getVirtualMachinesOriginal(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armcompute.VirtualMachine, error) {
	vmClient, err := client.GetVirtualMachinesClient(subscriptionID)
	if err != nil {
		return nil, err
	}
	var results []*armcompute.VirtualMachine
	pager := vmClient.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "could not list virtual machines in subscription %s", subscriptionID)
		}
		results = append(results, page.Value...)
	}
	return results, nil
}

var getScaleSets = getScaleSetsOriginal

func getScaleSetsOriginal(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armcompute.VirtualMachineScaleSet, error) {
	ssClient, err := client.GetVirtualMachineScaleSetsClient(subscriptionID)
	if err != nil {
		return nil, err
	}
	var results []*armcompute.VirtualMachineScaleSet
	pager := ssClient.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "could not list scale sets in subscription %s", subscriptionID)
		}
		results = append(results, page.Value...)
	}
	return results, nil
}

var getScaleSetVMs = getScaleSetVMsOriginal

func getScaleSetVMsOriginal(ctx context.Context, client *internal.AzureClient, subscriptionID, resourceGroup, scaleSetName string) ([]*armcompute.VirtualMachineScaleSetVM, error) {
	vmClient, err := client.GetVirtualMachineScaleSetVMsClient(subscriptionID)
	if err != nil {
		return nil, err
	}
	var results []*armcompute.VirtualMachineScaleSetVM
	pager := vmClient.NewListPager(resourceGroup, scaleSetName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "could not list instances of scale set %s/%s", resourceGroup, scaleSetName)
		}
		results = append(results, page.Value...)
	}
	return results, nil
}

var getDisks = getDisksOriginal

func getDisksOriginal(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armcompute.Disk, error) {
	diskClient, err := client.GetDisksClient(subscriptionID)
	if err != nil {
		return nil, err
	}
	var results []*armcompute.Disk
	pager := diskClient.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "could not list managed disks in subscription %s", subscriptionID)
		}
		results = append(results, page.Value...)
	}
	return results, nil
}

var getStorageAccounts = getStorageAccountsOriginal

func getStorageAccountsOriginal(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armstorage.Account, error) {
	accountsClient, err := client.GetStorageAccountsClient(subscriptionID)
	if err != nil {
		return nil, err
	}
	var results []*armstorage.Account
	pager := accountsClient.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "could not list storage accounts in subscription %s", subscriptionID)
		}
		results = append(results, page.Value...)
	}
	return results, nil
}
