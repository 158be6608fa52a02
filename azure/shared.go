package azure

import (
	"context"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/audit-scripts/azaudit/internal"
	"github.com/aws/smithy-go/ptr"
	"github.com/c-bata/go-prompt"
)

type SubscriptionInfo struct {
	ID       string
	Name     string
	TenantID string
	State    string
}

type TenantInfo struct {
	ID            string
	DefaultDomain string
	Subscriptions []SubscriptionInfo
}

var getSubscriptions = getSubscriptionsOriginal

func getSubscriptionsOriginal(ctx context.Context, client *internal.AzureClient) ([]*armsubscriptions.Subscription, error) {
	return client.GetSubscriptions(ctx)
}

var getTenants = getTenantsOriginal

func getTenantsOriginal(ctx context.Context, client *internal.AzureClient) ([]*armsubscriptions.TenantIDDescription, error) {
	return client.GetTenants(ctx)
}

// GetSubscriptionsPerTenantID keeps listing order and skips subscriptions that
// report a different home tenant.
func GetSubscriptionsPerTenantID(ctx context.Context, client *internal.AzureClient, tenantID string) ([]SubscriptionInfo, error) {
	subs, err := getSubscriptions(ctx, client)
	if err != nil {
		return nil, err
	}
	var results []SubscriptionInfo
	for _, s := range subs {
		if s == nil {
			continue
		}
		if s.TenantID != nil && !strings.EqualFold(ptr.ToString(s.TenantID), tenantID) {
			continue
		}
		info := SubscriptionInfo{
			ID:       ptr.ToString(s.SubscriptionID),
			Name:     ptr.ToString(s.DisplayName),
			TenantID: tenantID,
		}
		if s.State != nil {
			info.State = string(*s.State)
		}
		results = append(results, info)
	}
	return results, nil
}

// populateTenant matches tenantID against both tenant ids and default domains.
func populateTenant(ctx context.Context, client *internal.AzureClient, tenantID string) (TenantInfo, error) {
	tenants, err := getTenants(ctx, client)
	if err != nil {
		return TenantInfo{}, err
	}
	info := TenantInfo{ID: tenantID}
	for _, t := range tenants {
		if t == nil {
			continue
		}
		if strings.EqualFold(ptr.ToString(t.TenantID), tenantID) || strings.EqualFold(ptr.ToString(t.DefaultDomain), tenantID) {
			info.ID = ptr.ToString(t.TenantID)
			info.DefaultDomain = ptr.ToString(t.DefaultDomain)
			break
		}
	}
	info.Subscriptions, err = GetSubscriptionsPerTenantID(ctx, client, info.ID)
	if err != nil {
		return TenantInfo{}, err
	}
	return info, nil
}

var promptTenantID = promptTenantIDOriginal

func promptTenantIDOriginal() string {
	return prompt.Input(
		"Azure tenant ID: ",
		func(document prompt.Document) []prompt.Suggest { return nil },
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(buffer *prompt.Buffer) {
				os.Exit(1)
			},
		}),
	)
}

// ResolveTenantID returns the configured tenant or asks for one. The answer is
// only checked for being non-empty.
func ResolveTenantID(configured string) string {
	if tenant := strings.TrimSpace(configured); tenant != "" {
		return tenant
	}
	return strings.TrimSpace(promptTenantID())
}

func resourceGroupFromID(resourceID string) string {
	if resourceID == "" {
		return ""
	}
	id, err := arm.ParseResourceID(resourceID)
	if err != nil {
		return ""
	}
	return id.ResourceGroupName
}

func resourceNameFromID(resourceID string) string {
	if resourceID == "" {
		return ""
	}
	id, err := arm.ParseResourceID(resourceID)
	if err != nil {
		parts := strings.Split(strings.TrimRight(resourceID, "/"), "/")
		return parts[len(parts)-1]
	}
	return id.Name
}
