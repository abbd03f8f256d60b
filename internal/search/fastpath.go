package search

// DefaultIntents maps common phrasings straight to an operation id.
// Keys are normalized on index build; only exact matches trigger.
var DefaultIntents = map[string]string{
	"list organizations":    "getOrganizations",
	"get organizations":     "getOrganizations",
	"my organizations":      "getOrganizations",
	"list networks":         "getOrganizationNetworks",
	"organization networks": "getOrganizationNetworks",
	"list devices":          "getOrganizationDevices",
	"organization devices":  "getOrganizationDevices",
	"device status":         "getOrganizationDevicesStatuses",
	"device statuses":       "getOrganizationDevicesStatuses",
	"device info":           "getDevice",
	"device details":        "getDevice",
	"network clients":       "getNetworkClients",
	"list clients":          "getNetworkClients",
	"network settings":      "getNetworkSettings",
	"firewall rules":        "getNetworkApplianceFirewallL3FirewallRules",
	"l3 firewall rules":     "getNetworkApplianceFirewallL3FirewallRules",
	"switch port":           "getDeviceSwitchPort",
	"switch ports":          "getDeviceSwitchPorts",
	"uplink status":         "getOrganizationUplinksStatuses",
	"uplinks statuses":      "getOrganizationUplinksStatuses",
	"network topology":      "getNetworkTopologyLinkLayer",
	"compliance types":      "getComplianceTypes",
}
