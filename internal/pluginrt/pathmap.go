package pluginrt

import (
	"os"
	"path/filepath"
	"strings"
)

// pathFor implements the Path Mapper: a pure function from
// (cacheDir, pluginId, scope, channelId?) to an on-disk path.
func pathFor(cacheDir, pluginID string, scope Scope, channelID string) (string, error) {
	if err := checkIdentifier("pluginId", pluginID); err != nil {
		return "", err
	}

	base := filepath.Join(cacheDir, "plugins", pluginID)

	switch scope {
	case ScopeGlobal:
		return filepath.Join(base, "global.json"), nil
	case ScopeChannel:
		if err := checkIdentifier("channelId", channelID); err != nil {
			return "", err
		}
		return filepath.Join(base, "channel", channelID+".json"), nil
	case ScopeEpic:
		if err := checkIdentifier("channelId", channelID); err != nil {
			return "", err
		}
		return filepath.Join(base, "epic", channelID+".json"), nil
	default:
		return "", invalidIdentifier("scope", string(scope))
	}
}

// checkIdentifier rejects empty identifiers and path components
// containing separators, since those would escape the intended file.
func checkIdentifier(kind, value string) error {
	if value == "" || strings.ContainsAny(value, "/\\") {
		return invalidIdentifier(kind, value)
	}
	return nil
}

// ensureDir creates the parent directory of path on demand, before any
// write into it.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
