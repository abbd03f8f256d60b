package engine

import (
	"context"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// DefaultClientTimespan is the lookback used by NetworkClients when none is given (30 days)
const DefaultClientTimespan = 2592000

// Organizations lists the organizations of the active dashboard credential
func (e *Engine) Organizations(ctx context.Context) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{OperationID: "getOrganizations"})
}

// OrganizationDevices lists the devices of an organization
func (e *Engine) OrganizationDevices(ctx context.Context, orgID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getOrganizationDevices",
		Args:        map[string]any{"organizationId": orgID},
	})
}

// OrganizationNetworks lists the networks of an organization
func (e *Engine) OrganizationNetworks(ctx context.Context, orgID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getOrganizationNetworks",
		Args:        map[string]any{"organizationId": orgID},
	})
}

// Device returns one device by serial
func (e *Engine) Device(ctx context.Context, serial string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getDevice",
		Args:        map[string]any{"serial": serial},
	})
}

// NetworkClients lists the clients seen on a network within timespan seconds
func (e *Engine) NetworkClients(ctx context.Context, networkID string, timespan int) (*models.ExecutionResult, error) {
	if timespan <= 0 {
		timespan = DefaultClientTimespan
	}
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getNetworkClients",
		Args:        map[string]any{"networkId": networkID, "timespan": timespan},
	})
}

// DeviceSwitchPort returns the configuration of one switch port
func (e *Engine) DeviceSwitchPort(ctx context.Context, serial, portID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getDeviceSwitchPort",
		Args:        map[string]any{"serial": serial, "portId": portID},
	})
}

// KeyOrganizations lists the organizations visible to one named dashboard credential
func (e *Engine) KeyOrganizations(ctx context.Context, label string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{OperationID: "getOrganizations", Credential: label})
}

// DeviceStatuses lists the status of every device in an organization
func (e *Engine) DeviceStatuses(ctx context.Context, orgID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getOrganizationDevicesStatuses",
		Args:        map[string]any{"organizationId": orgID},
	})
}

// OrganizationUplinksStatuses lists the uplink status of every appliance, gateway and camera
func (e *Engine) OrganizationUplinksStatuses(ctx context.Context, orgID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getOrganizationUplinksStatuses",
		Args:        map[string]any{"organizationId": orgID},
	})
}

func (e *Engine) NetworkSettings(ctx context.Context, networkID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getNetworkSettings",
		Args:        map[string]any{"networkId": networkID},
	})
}

// FirewallRules returns the L3 firewall rules of a network's appliance
func (e *Engine) FirewallRules(ctx context.Context, networkID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getNetworkApplianceFirewallL3FirewallRules",
		Args:        map[string]any{"networkId": networkID},
	})
}

// NetworkTopology returns the link layer topology of a network
func (e *Engine) NetworkTopology(ctx context.Context, networkID string) (*models.ExecutionResult, error) {
	return e.Execute(ctx, ExecuteInput{
		OperationID: "getNetworkTopologyLinkLayer",
		Args:        map[string]any{"networkId": networkID},
	})
}
