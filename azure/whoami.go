package azure

import (
	"context"

	"github.com/audit-scripts/azaudit/globals"
	"github.com/audit-scripts/azaudit/internal"
)

type AzWhoamiModule struct {
	AzClient *internal.AzureClient
	Log      internal.Logger
}

func (m *AzWhoamiModule) AzWhoamiCommand(ctx context.Context) error {
	m.Log.Infof("Enumerating subscriptions visible in tenant %s...", m.AzClient.TenantID)
	header, body, err := m.getWhoamiRelevantData(ctx)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		m.Log.Warnf("No subscriptions visible in tenant %s", m.AzClient.TenantID)
		return nil
	}

	o := internal.OutputClient{
		Verbosity:        m.AzClient.Verbosity,
		CallingModule:    globals.AZ_WHOAMI_MODULE_NAME,
		PrefixIdentifier: m.AzClient.TenantID,
		Table:            internal.TableClient{Wrap: m.AzClient.WrapTable},
	}
	_, err = o.WriteFullOutput([]internal.TableFile{{
		Name:            globals.AZ_WHOAMI_MODULE_NAME,
		Header:          header,
		Body:            body,
		ScreenVerbosity: 1,
		SkipFiles:       true,
	}}, nil)
	return err
}

func (m *AzWhoamiModule) getWhoamiRelevantData(ctx context.Context) ([]string, [][]string, error) {
	tableHead := []string{"Tenant ID", "Domain", "Subscription ID", "Subscription Name", "State"}
	tenant, err := populateTenant(ctx, m.AzClient, m.AzClient.TenantID)
	if err != nil {
		return nil, nil, err
	}
	var tableBody [][]string
	for _, s := range tenant.Subscriptions {
		tableBody = append(tableBody, []string{tenant.ID, tenant.DefaultDomain, s.ID, s.Name, s.State})
	}
	return tableHead, tableBody, nil
}
