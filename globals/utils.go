package globals

import (
	_ "embed"
	"strings"
)

const AZAUDIT_USER_AGENT = "azaudit"
const AZAUDIT_LOG_FILE_DIR_NAME = ".azaudit"
const AZAUDIT_ERROR_LOG_FILE_NAME = "azaudit-error.log"
const AZAUDIT_ENV_PREFIX = "AZAUDIT"

var AZAUDIT_VERSION string = strings.TrimSpace(version)

//go:embed VERSION
var version string
