package prefs

import (
	"fmt"
	"strconv"
)

// Storage key layout. Tab platform picks live in the tab scope; everything
// else lives in the global scope.
const (
	tabPlatformPrefix    = "tabPlatformPreference:"
	globalPlatformPrefix = "globalPlatformPreference:"
	globalModelPrefix    = "globalModelPreference:"
	overridePrefix       = "parameterOverrides:"
)

func tabPlatformKey(tabID int) string {
	return tabPlatformPrefix + strconv.Itoa(tabID)
}

func globalPlatformKey(iface InterfaceType) string {
	return globalPlatformPrefix + string(iface)
}

func globalModelKey(iface InterfaceType, platformID string) string {
	return fmt.Sprintf("%s%s:%s", globalModelPrefix, iface, platformID)
}

func overrideKey(platformID, modelID string, mode Mode) string {
	return fmt.Sprintf("%s%s:%s:%s", overridePrefix, platformID, modelID, mode)
}
