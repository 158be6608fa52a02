package azure

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/audit-scripts/azaudit/globals"
	"github.com/audit-scripts/azaudit/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAzWhoamiCommand(t *testing.T) {
	useMockedAzure(t)
	var screen bytes.Buffer
	defer internal.MockScreen(&screen)()

	log := internal.NewLogger(globals.AZ_WHOAMI_MODULE_NAME)
	log.SetOutput(io.Discard)
	m := AzWhoamiModule{AzClient: testAzureClient(1), Log: log}
	require.NoError(t, m.AzWhoamiCommand(context.Background()))

	out := screen.String()
	assert.Contains(t, out, "contoso.onmicrosoft.com")
	assert.Contains(t, out, "Production")
	assert.Contains(t, out, "Dev")
	assert.NotContains(t, out, "Guest")
}
