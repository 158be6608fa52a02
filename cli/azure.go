package cli

import (
	"context"
	"strings"

	"github.com/audit-scripts/azaudit/azure"
	"github.com/audit-scripts/azaudit/globals"
	"github.com/audit-scripts/azaudit/internal"
	"github.com/friendsofgo/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	AzClient *internal.AzureClient

	// flags are resolved through azViper so every one of them can also come
	// from an AZAUDIT_* environment variable
	azViper *viper.Viper

	AzCommands = &cobra.Command{
		Use:              "azure",
		Aliases:          []string{"az"},
		Long:             `See "Available Commands" for Azure Modules below`,
		Short:            "See \"Available Commands\" for Azure Modules below",
		PersistentPreRun: azurePreRun,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	AzDisksCommand = &cobra.Command{
		Use:     "disks",
		Aliases: []string{"disk-audit"},
		Short:   "Audit every VM, scale set and managed disk in a tenant for unmanaged disk migration",
		Long: `
Audit all compute disks of a tenant and write Tenant-Full-Compute-Disk-Audit.csv
and Tenant-Disk-Summary.xlsx:
./azaudit az disks --tenant TENANT_ID

Use the default Azure credential chain instead of the Azure CLI login:
./azaudit az disks --tenant TENANT_ID --auth default

Without --tenant (or AZAUDIT_TENANT) the tenant is asked for interactively.`,
		Run: runAzDisksCommand,
	}
	AzWhoamiCommand = &cobra.Command{
		Use:     "whoami",
		Aliases: []string{},
		Short:   "Display the subscriptions visible in a tenant",
		Long: `
Display the subscriptions the current credential can read:
./azaudit az whoami --tenant TENANT_ID`,
		Run: runAzWhoamiCommand,
	}
)

type azureSettings struct {
	TenantID        string
	AuthMode        string
	OutputDirectory string
	Verbosity       int
	WrapTable       bool
	WriteJSON       bool
	Goroutines      int
}

func addAzureFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("tenant", "t", "", "Tenant ID to audit (prompted for when empty)")
	cmd.PersistentFlags().String("auth", globals.AZ_AUTH_MODE_CLI, "Credential source: \"cli\" (Azure CLI login) or \"default\" (DefaultAzureCredential chain)")
	cmd.PersistentFlags().String("outdir", ".", "Output Directory")
	cmd.PersistentFlags().IntP("verbosity", "v", 2, "1 = Print control messages only\n2 = Print control messages, summary tables\n3 = Print control messages, summary tables, and every disk record\n")
	cmd.PersistentFlags().BoolP("wrap", "w", false, "Wrap table to fit in terminal (complicates grepping)")
	cmd.PersistentFlags().Bool("json", false, "Also write the disk records as JSON")
	cmd.PersistentFlags().IntP("goroutines", "g", globals.AZ_DEFAULT_GOROUTINES, "Maximum number of subscriptions audited concurrently")
}

func newAzureViper(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(globals.AZAUDIT_ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindPFlags(cmd.PersistentFlags())
	return v
}

func loadAzureSettings(v *viper.Viper) azureSettings {
	return azureSettings{
		TenantID:        strings.TrimSpace(v.GetString("tenant")),
		AuthMode:        strings.ToLower(v.GetString("auth")),
		OutputDirectory: v.GetString("outdir"),
		Verbosity:       v.GetInt("verbosity"),
		WrapTable:       v.GetBool("wrap"),
		WriteJSON:       v.GetBool("json"),
		Goroutines:      v.GetInt("goroutines"),
	}
}

func runAzDisksCommand(cmd *cobra.Command, args []string) {
	m := azure.AzDisksModule{
		AzClient: AzClient,
		Log:      internal.NewLogger(globals.AZ_DISKS_MODULE_NAME),
	}
	err := m.AzDisksCommand(cmd.Context())
	if err != nil {
		m.Log.Fatal(err.Error())
	}
}

func runAzWhoamiCommand(cmd *cobra.Command, args []string) {
	m := azure.AzWhoamiModule{
		AzClient: AzClient,
		Log:      internal.NewLogger(globals.AZ_WHOAMI_MODULE_NAME),
	}
	err := m.AzWhoamiCommand(cmd.Context())
	if err != nil {
		m.Log.Fatal(err.Error())
	}
}

func azurePreRun(cmd *cobra.Command, args []string) {
	log := internal.NewLogger("azure")
	client, err := authenticate(cmd.Context(), &log, loadAzureSettings(azViper), cmd.Root().Version)
	if err != nil {
		log.Fatal(err.Error())
		return
	}
	AzClient = client
}

// swapped in tests
var (
	resolveTenantID = azure.ResolveTenantID
	newAzureClient  = internal.NewAzureClient
)

// authenticate builds the client and requests a token, so a missing tenant or
// a stale login stops the run before any listing or output.
func authenticate(ctx context.Context, log *internal.Logger, settings azureSettings, version string) (*internal.AzureClient, error) {
	tenantID := resolveTenantID(settings.TenantID)
	if tenantID == "" {
		return nil, errors.New("no tenant identifier supplied, stopping")
	}

	client, err := newAzureClient(
		tenantID,
		settings.AuthMode,
		settings.Verbosity,
		settings.WrapTable,
		settings.WriteJSON,
		settings.OutputDirectory,
		settings.Goroutines,
		version,
	)
	if err != nil {
		return nil, err
	}
	log.Infof("Authenticating to tenant %s using %s credentials", tenantID, settings.AuthMode)
	if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func init() {
	addAzureFlags(AzCommands)
	azViper = newAzureViper(AzCommands)

	AzCommands.AddCommand(
		AzDisksCommand,
		AzWhoamiCommand)
}
