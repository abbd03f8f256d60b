package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/prasenjit/go-meraki-mcp/internal/engine"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
	"github.com/prasenjit/go-meraki-mcp/internal/search"
)

func (s *Server) buildTools() []server.ServerTool {
	return []server.ServerTool{
		// Discovery and execution
		{
			Tool: mcp.NewTool("search_endpoints",
				mcp.WithDescription("Find API operations matching a natural-language description. "+
					"Returns ranked operation ids; use get_endpoint_parameters next."),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("What you want to do, e.g. 'list switch ports' or 'l3 firewall rules'"),
				),
				mcp.WithNumber("limit",
					mcp.Description(fmt.Sprintf("Maximum results, 1-%d (default %d)", search.MaxLimit, search.DefaultLimit)),
				),
			),
			Handler: s.handleSearch,
		},
		{
			Tool: mcp.NewTool("get_endpoint_parameters",
				mcp.WithDescription("Describe the required and optional parameters of an operation"),
				mcp.WithString("operation_id",
					mcp.Required(),
					mcp.Description("Operation id from search_endpoints, e.g. getNetworkClients"),
				),
			),
			Handler: s.handleDescribe,
		},
		{
			Tool: mcp.NewTool("execute_endpoint",
				mcp.WithDescription("Execute an API operation. Reads are cached for a few minutes. "+
					"An organizationId argument selects the API key that owns that organization."),
				mcp.WithString("operation_id",
					mcp.Required(),
					mcp.Description("Operation id to execute"),
				),
				mcp.WithObject("arguments",
					mcp.Description("Operation parameters by name"),
				),
				mcp.WithString("credential",
					mcp.Description("API key label to use instead of the default"),
				),
				mcp.WithArray("fields",
					mcp.Description("Only return these fields of the response (dot paths allowed)"),
					mcp.WithStringItems(),
				),
			),
			Handler: s.handleExecute,
		},

		// API keys and organizations
		{
			Tool: mcp.NewTool("list_api_keys",
				mcp.WithDescription("List configured API keys (masked) and which one is the default"),
				mcp.WithString("backend",
					mcp.Description("meraki (default) or selent"),
					mcp.Enum(models.BackendMeraki, models.BackendSelent),
				),
			),
			Handler: s.handleListKeys,
		},
		{
			Tool: mcp.NewTool("set_default_key",
				mcp.WithDescription("Make an API key the default for subsequent calls"),
				mcp.WithString("label",
					mcp.Required(),
					mcp.Description("Key label as shown by list_api_keys"),
				),
				mcp.WithString("backend",
					mcp.Description("meraki (default) or selent"),
					mcp.Enum(models.BackendMeraki, models.BackendSelent),
				),
			),
			Handler: s.handleSetDefaultKey,
		},
		{
			Tool: mcp.NewTool("discover_organizations",
				mcp.WithDescription("Query every API key for its organizations so calls can be routed by organizationId"),
			),
			Handler: s.handleDiscover,
		},
		{
			Tool: mcp.NewTool("find_organization_by_name",
				mcp.WithDescription("Resolve an organization name to its id and owning API key"),
				mcp.WithString("name",
					mcp.Required(),
					mcp.Description("Organization name or part of it"),
				),
				mcp.WithBoolean("exact",
					mcp.Description("Require an exact, case-sensitive match"),
				),
			),
			Handler: s.handleFindOrganization,
		},

		// Commonly used calls
		{
			Tool: mcp.NewTool("get_organizations",
				mcp.WithDescription("List the organizations the default API key can access"),
			),
			Handler: s.handleOrganizations,
		},
		{
			Tool: mcp.NewTool("get_organization_networks",
				mcp.WithDescription("List the networks of an organization"),
				mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization id")),
			),
			Handler: s.handleOrganizationNetworks,
		},
		{
			Tool: mcp.NewTool("get_organization_devices",
				mcp.WithDescription("List the devices of an organization"),
				mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization id")),
			),
			Handler: s.handleOrganizationDevices,
		},
		{
			Tool: mcp.NewTool("get_device",
				mcp.WithDescription("Return one device by serial number"),
				mcp.WithString("serial", mcp.Required(), mcp.Description("Device serial, e.g. Q2XX-XXXX-XXXX")),
			),
			Handler: s.handleDevice,
		},
		{
			Tool: mcp.NewTool("get_network_clients",
				mcp.WithDescription("List the clients seen on a network"),
				mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
				mcp.WithNumber("timespan",
					mcp.Description(fmt.Sprintf("Lookback in seconds (default %d)", engine.DefaultClientTimespan)),
				),
			),
			Handler: s.handleNetworkClients,
		},
		{
			Tool: mcp.NewTool("get_switch_port_config",
				mcp.WithDescription("Return the configuration of one switch port"),
				mcp.WithString("serial", mcp.Required(), mcp.Description("Switch serial")),
				mcp.WithString("port_id", mcp.Required(), mcp.Description("Port id, e.g. 1")),
			),
			Handler: s.handleSwitchPort,
		},
		{
			Tool: mcp.NewTool("get_key_organizations",
				mcp.WithDescription("List the organizations one named API key can access"),
				mcp.WithString("key_id", mcp.Required(), mcp.Description("Label of the API key, as shown by list_api_keys")),
			),
			Handler: s.withID("key_id", s.core.KeyOrganizations),
		},
		{
			Tool: mcp.NewTool("get_device_status",
				mcp.WithDescription("List the status of every device in an organization"),
				mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization id")),
			),
			Handler: s.withID("organization_id", s.core.DeviceStatuses),
		},
		{
			Tool: mcp.NewTool("get_organization_uplinks_statuses",
				mcp.WithDescription("List the uplink status of every appliance, gateway and camera in an organization"),
				mcp.WithString("organization_id", mcp.Required(), mcp.Description("Organization id")),
			),
			Handler: s.withID("organization_id", s.core.OrganizationUplinksStatuses),
		},
		{
			Tool: mcp.NewTool("get_network_settings",
				mcp.WithDescription("Return the settings of a network"),
				mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
			),
			Handler: s.withID("network_id", s.core.NetworkSettings),
		},
		{
			Tool: mcp.NewTool("get_firewall_rules",
				mcp.WithDescription("Return the L3 firewall rules of a network's appliance"),
				mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
			),
			Handler: s.withID("network_id", s.core.FirewallRules),
		},
		{
			Tool: mcp.NewTool("get_network_topology",
				mcp.WithDescription("Return the link layer topology of a network"),
				mcp.WithString("network_id", mcp.Required(), mcp.Description("Network id")),
			),
			Handler: s.withID("network_id", s.core.NetworkTopology),
		},
	}
}

// withID adapts an engine call that takes one required string argument
func (s *Server) withID(arg string, call func(context.Context, string) (*models.ExecutionResult, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString(arg)
		if err != nil || id == "" {
			return mcp.NewToolResultError(arg + " argument is required"), nil
		}
		res, err := call(ctx, id)
		if err != nil {
			return errorResult(err)
		}
		return jsonResult(res)
	}
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query argument is required"), nil
	}

	res := s.core.Search(query, request.GetInt("limit", search.DefaultLimit))

	matches := make([]map[string]any, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, map[string]any{
			"operation_id": m.Operation.ID,
			"section":      m.Operation.Section,
			"method":       m.Operation.Method,
			"path":         m.Operation.PathTemplate,
			"description":  m.Operation.Description,
			"score":        m.Score,
		})
	}

	out := map[string]any{
		"query":     query,
		"fast_path": res.FastPath,
		"matches":   matches,
	}
	if len(matches) == 0 {
		out["hint"] = "No operations matched; try broader words such as a section name (devices, networks, switch, wireless)"
	}
	return jsonResult(out)
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("operation_id")
	if err != nil {
		return mcp.NewToolResultError("operation_id argument is required"), nil
	}

	doc, err := s.core.Describe(id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(doc)
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("operation_id")
	if err != nil {
		return mcp.NewToolResultError("operation_id argument is required"), nil
	}

	args, err := argsObject(request, "arguments")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return s.execute(ctx, engine.ExecuteInput{
		OperationID: id,
		Args:        args,
		Credential:  request.GetString("credential", ""),
		Fields:      request.GetStringSlice("fields", nil),
	})
}

func (s *Server) handleListKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	backend := request.GetString("backend", models.BackendMeraki)
	infos, err := s.core.Credentials(backend)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{
		"backend": backend,
		"keys":    infos,
		"total":   len(infos),
	})
}

func (s *Server) handleSetDefaultKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := request.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError("label argument is required"), nil
	}
	backend := request.GetString("backend", models.BackendMeraki)

	if err := s.core.SetActive(backend, label); err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"backend": backend, "default": label})
}

func (s *Server) handleDiscover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgs, err := s.core.DiscoverOrganizations(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{"organizations": orgs, "total": len(orgs)})
}

func (s *Server) handleFindOrganization(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required"), nil
	}

	if len(s.core.KnownOrganizations()) == 0 {
		if _, err := s.core.DiscoverOrganizations(ctx); err != nil {
			return errorResult(err)
		}
	}

	matches := s.core.FindOrganizations(name, !request.GetBool("exact", false))
	out := map[string]any{"query": name, "matches": matches}
	if len(matches) > 0 {
		out["usage"] = fmt.Sprintf("Pass organizationId=%q in arguments to use the owning key automatically", matches[0].ID)
	}
	return jsonResult(out)
}

func (s *Server) handleOrganizations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.core.Organizations(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) handleOrganizationNetworks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, err := request.RequireString("organization_id")
	if err != nil {
		return mcp.NewToolResultError("organization_id argument is required"), nil
	}
	res, err := s.core.OrganizationNetworks(ctx, orgID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) handleOrganizationDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, err := request.RequireString("organization_id")
	if err != nil {
		return mcp.NewToolResultError("organization_id argument is required"), nil
	}
	res, err := s.core.OrganizationDevices(ctx, orgID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) handleDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serial, err := request.RequireString("serial")
	if err != nil {
		return mcp.NewToolResultError("serial argument is required"), nil
	}
	res, err := s.core.Device(ctx, serial)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) handleNetworkClients(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	networkID, err := request.RequireString("network_id")
	if err != nil {
		return mcp.NewToolResultError("network_id argument is required"), nil
	}
	res, err := s.core.NetworkClients(ctx, networkID, request.GetInt("timespan", engine.DefaultClientTimespan))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) handleSwitchPort(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serial, err := request.RequireString("serial")
	if err != nil {
		return mcp.NewToolResultError("serial argument is required"), nil
	}
	portID, err := request.RequireString("port_id")
	if err != nil {
		return mcp.NewToolResultError("port_id argument is required"), nil
	}
	res, err := s.core.DeviceSwitchPort(ctx, serial, portID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}
