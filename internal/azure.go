package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/audit-scripts/azaudit/globals"
	"github.com/friendsofgo/errors"
)

type AzureClient struct {
	TenantID   string
	AuthMode   string
	Credential azcore.TokenCredential

	Verbosity       int
	WrapTable       bool
	WriteJSON       bool
	OutputDirectory string
	Goroutines      int
	Version         string
}

// NewCredential returns a token credential bound to tenantID. The "cli" mode
// reuses the Azure CLI login, "default" walks the DefaultAzureCredential chain.
func NewCredential(tenantID, authMode string) (azcore.TokenCredential, error) {
	switch strings.ToLower(authMode) {
	case "", globals.AZ_AUTH_MODE_CLI:
		cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{TenantID: tenantID})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get credentials from Azure CLI")
		}
		return cred, nil
	case globals.AZ_AUTH_MODE_DEFAULT:
		cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{TenantID: tenantID})
		if err != nil {
			return nil, errors.Wrap(err, "failed to build default Azure credential chain")
		}
		return cred, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q (expected %s or %s)", authMode, globals.AZ_AUTH_MODE_CLI, globals.AZ_AUTH_MODE_DEFAULT)
	}
}

func NewAzureClient(tenantID, authMode string, verbosity int, wrapTable, writeJSON bool, outputDirectory string, goroutines int, version string) (*AzureClient, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant identifier is empty")
	}
	cred, err := NewCredential(tenantID, authMode)
	if err != nil {
		return nil, err
	}
	if goroutines < 1 {
		goroutines = globals.AZ_DEFAULT_GOROUTINES
	}
	client := &AzureClient{
		TenantID:        tenantID,
		AuthMode:        authMode,
		Credential:      cred,
		Verbosity:       verbosity,
		WrapTable:       wrapTable,
		WriteJSON:       writeJSON,
		OutputDirectory: outputDirectory,
		Goroutines:      goroutines,
		Version:         version,
	}
	return client, nil
}

// Authenticate requests a Resource Manager token so that a stale or missing
// login fails before any listing starts.
func (a *AzureClient) Authenticate(ctx context.Context) error {
	_, err := a.Credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes:   []string{globals.AZ_RESOURCE_MANAGER_SCOPE},
		TenantID: a.TenantID,
	})
	if err != nil {
		return errors.Wrapf(err, "could not authenticate to tenant %s", a.TenantID)
	}
	return nil
}

func (a *AzureClient) armOptions() *arm.ClientOptions {
	opts := &arm.ClientOptions{}
	opts.Telemetry.ApplicationID = globals.AZAUDIT_USER_AGENT
	return opts
}

func (a *AzureClient) GetSubscriptionsClient() (*armsubscriptions.Client, error) {
	client, err := armsubscriptions.NewClient(a.Credential, a.armOptions())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get subscriptions client")
	}
	return client, nil
}

func (a *AzureClient) GetTenantsClient() (*armsubscriptions.TenantsClient, error) {
	client, err := armsubscriptions.NewTenantsClient(a.Credential, a.armOptions())
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tenants client")
	}
	return client, nil
}

func (a *AzureClient) GetVirtualMachinesClient(subscriptionID string) (*armcompute.VirtualMachinesClient, error) {
	client, err := armcompute.NewVirtualMachinesClient(subscriptionID, a.Credential, a.armOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get virtual machines client for %s", subscriptionID)
	}
	return client, nil
}

func (a *AzureClient) GetVirtualMachineScaleSetsClient(subscriptionID string) (*armcompute.VirtualMachineScaleSetsClient, error) {
	client, err := armcompute.NewVirtualMachineScaleSetsClient(subscriptionID, a.Credential, a.armOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get scale sets client for %s", subscriptionID)
	}
	return client, nil
}

func (a *AzureClient) GetVirtualMachineScaleSetVMsClient(subscriptionID string) (*armcompute.VirtualMachineScaleSetVMsClient, error) {
	client, err := armcompute.NewVirtualMachineScaleSetVMsClient(subscriptionID, a.Credential, a.armOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get scale set instances client for %s", subscriptionID)
	}
	return client, nil
}

func (a *AzureClient) GetDisksClient(subscriptionID string) (*armcompute.DisksClient, error) {
	client, err := armcompute.NewDisksClient(subscriptionID, a.Credential, a.armOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get disks client for %s", subscriptionID)
	}
	return client, nil
}

func (a *AzureClient) GetStorageAccountsClient(subscriptionID string) (*armstorage.AccountsClient, error) {
	client, err := armstorage.NewAccountsClient(subscriptionID, a.Credential, a.armOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get storage accounts client for %s", subscriptionID)
	}
	return client, nil
}

// GetSubscriptions lists every subscription visible to the credential.
func (a *AzureClient) GetSubscriptions(ctx context.Context) ([]*armsubscriptions.Subscription, error) {
	client, err := a.GetSubscriptionsClient()
	if err != nil {
		return nil, err
	}
	var results []*armsubscriptions.Subscription
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not get subscriptions for active session")
		}
		results = append(results, page.Value...)
	}
	return results, nil
}

func (a *AzureClient) GetTenants(ctx context.Context) ([]*armsubscriptions.TenantIDDescription, error) {
	client, err := a.GetTenantsClient()
	if err != nil {
		return nil, err
	}
	var results []*armsubscriptions.TenantIDDescription
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not get tenants for active session")
		}
		results = append(results, page.Value...)
	}
	return results, nil
}
