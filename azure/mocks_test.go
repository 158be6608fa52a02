package azure

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/audit-scripts/azaudit/internal"
	"github.com/aws/smithy-go/ptr"
	"github.com/goccy/go-json"
)

const (
	testTenantID     = "11111111-1111-1111-1111-111111111111"
	diskTestFileName = "./test-data/tenant-disks.json"
)

type diskTestFile struct {
	Tenants       []*armsubscriptions.TenantIDDescription `json:"tenants"`
	Subscriptions []struct {
		Subscription    *armsubscriptions.Subscription `json:"subscription"`
		VirtualMachines []*armcompute.VirtualMachine   `json:"virtualMachines"`
		ScaleSets       []struct {
			ScaleSet  *armcompute.VirtualMachineScaleSet     `json:"scaleSet"`
			Instances []*armcompute.VirtualMachineScaleSetVM `json:"instances"`
		} `json:"scaleSets"`
		Disks           []*armcompute.Disk     `json:"disks"`
		StorageAccounts []*armstorage.Account `json:"storageAccounts"`
	} `json:"subscriptions"`
}

func loadDiskTestFile() diskTestFile {
	file, err := os.ReadFile(diskTestFileName)
	if err != nil {
		panic(fmt.Sprintf("could not read file %s: %s", diskTestFileName, err))
	}
	var testFile diskTestFile
	if err := json.Unmarshal(file, &testFile); err != nil {
		panic(fmt.Sprintf("could not unmarshall file %s: %s", diskTestFileName, err))
	}
	return testFile
}

func mockedGetTenants(ctx context.Context, client *internal.AzureClient) ([]*armsubscriptions.TenantIDDescription, error) {
	return loadDiskTestFile().Tenants, nil
}

func mockedGetSubscriptions(ctx context.Context, client *internal.AzureClient) ([]*armsubscriptions.Subscription, error) {
	var results []*armsubscriptions.Subscription
	for _, s := range loadDiskTestFile().Subscriptions {
		results = append(results, s.Subscription)
	}
	return results, nil
}

func mockedGetVirtualMachines(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armcompute.VirtualMachine, error) {
	for _, s := range loadDiskTestFile().Subscriptions {
		if ptr.ToString(s.Subscription.SubscriptionID) == subscriptionID {
			return s.VirtualMachines, nil
		}
	}
	return nil, nil
}

func mockedGetScaleSets(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armcompute.VirtualMachineScaleSet, error) {
	var results []*armcompute.VirtualMachineScaleSet
	for _, s := range loadDiskTestFile().Subscriptions {
		if ptr.ToString(s.Subscription.SubscriptionID) == subscriptionID {
			for _, ss := range s.ScaleSets {
				results = append(results, ss.ScaleSet)
			}
		}
	}
	return results, nil
}

func mockedGetScaleSetVMs(ctx context.Context, client *internal.AzureClient, subscriptionID, resourceGroup, scaleSetName string) ([]*armcompute.VirtualMachineScaleSetVM, error) {
	for _, s := range loadDiskTestFile().Subscriptions {
		if ptr.ToString(s.Subscription.SubscriptionID) != subscriptionID {
			continue
		}
		for _, ss := range s.ScaleSets {
			if ptr.ToString(ss.ScaleSet.Name) == scaleSetName && strings.EqualFold(resourceGroupFromID(ptr.ToString(ss.ScaleSet.ID)), resourceGroup) {
				if ss.ScaleSet.Properties != nil && ss.ScaleSet.Properties.OrchestrationMode != nil && *ss.ScaleSet.Properties.OrchestrationMode == armcompute.OrchestrationModeFlexible {
					return nil, fmt.Errorf("listing instances is not supported for flexible scale set %s", scaleSetName)
				}
				return ss.Instances, nil
			}
		}
	}
	return nil, fmt.Errorf("scale set %s/%s not found", resourceGroup, scaleSetName)
}

func mockedGetDisks(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armcompute.Disk, error) {
	for _, s := range loadDiskTestFile().Subscriptions {
		if ptr.ToString(s.Subscription.SubscriptionID) == subscriptionID {
			return s.Disks, nil
		}
	}
	return nil, nil
}

func mockedGetStorageAccounts(ctx context.Context, client *internal.AzureClient, subscriptionID string) ([]*armstorage.Account, error) {
	for _, s := range loadDiskTestFile().Subscriptions {
		if ptr.ToString(s.Subscription.SubscriptionID) == subscriptionID {
			return s.StorageAccounts, nil
		}
	}
	return nil, nil
}

// useMockedAzure swaps every Azure call for the test-data fixture and
// restores the real implementations when the test ends.
func useMockedAzure(t *testing.T) {
	t.Helper()
	getTenants = mockedGetTenants
	getSubscriptions = mockedGetSubscriptions
	getVirtualMachines = mockedGetVirtualMachines
	getScaleSets = mockedGetScaleSets
	getScaleSetVMs = mockedGetScaleSetVMs
	getDisks = mockedGetDisks
	getStorageAccounts = mockedGetStorageAccounts
	internal.Cache.Flush()
	t.Cleanup(func() {
		getTenants = getTenantsOriginal
		getSubscriptions = getSubscriptionsOriginal
		getVirtualMachines = getVirtualMachinesOriginal
		getScaleSets = getScaleSetsOriginal
		getScaleSetVMs = getScaleSetVMsOriginal
		getDisks = getDisksOriginal
		getStorageAccounts = getStorageAccountsOriginal
		internal.Cache.Flush()
	})
}

func testAzureClient(verbosity int) *internal.AzureClient {
	return &internal.AzureClient{
		TenantID:        testTenantID,
		Verbosity:       verbosity,
		OutputDirectory: "audit-output",
		Goroutines:      2,
		Version:         "DEV",
	}
}
