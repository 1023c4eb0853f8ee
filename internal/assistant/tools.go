package assistant

import "github.com/sashabaranov/go-openai"

const (
	toolGetInventoryItems    = "get_inventory_items"
	toolGetInventoryItem     = "get_inventory_item"
	toolUpdateInventoryUsage = "update_inventory_usage"
	toolRestockInventory     = "restock_inventory"
	toolGetNotifications     = "get_notifications"
	toolGetUsageLogs         = "get_inventory_usage_logs"
	toolGetOrders            = "get_orders"
)

var emptyParams = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
	"required":   []string{},
}

var itemBatchParams = func(verb string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":        "array",
				"description": "List of items with quantities that were " + verb,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item_name": map[string]any{
							"type":        "string",
							"description": "The name of the inventory item " + verb,
						},
						"quantity": map[string]any{
							"type":        "integer",
							"description": "The quantity " + verb,
						},
					},
					"required": []string{"item_name", "quantity"},
				},
			},
		},
		"required": []string{"items"},
	}
}

func toolset() []openai.Tool {
	defs := []openai.FunctionDefinition{
		{
			Name:        toolGetInventoryItems,
			Description: "Gets all inventory items",
			Parameters:  emptyParams,
		},
		{
			Name:        toolGetInventoryItem,
			Description: "Gets specific inventory items by name",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"names": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "The names of the inventory items to retrieve",
					},
				},
				"required": []string{"names"},
			},
		},
		{
			Name:        toolUpdateInventoryUsage,
			Description: "Records usage of multiple inventory items (e.g., when items are used or taken)",
			Parameters:  itemBatchParams("used"),
		},
		{
			Name:        toolRestockInventory,
			Description: "Records restocking of multiple inventory items",
			Parameters:  itemBatchParams("restocked"),
		},
		{
			Name:        toolGetNotifications,
			Description: "Gets system notifications",
			Parameters:  emptyParams,
		},
		{
			Name:        toolGetUsageLogs,
			Description: "Gets inventory usage logs",
			Parameters:  emptyParams,
		},
		{
			Name:        toolGetOrders,
			Description: "Gets all orders",
			Parameters:  emptyParams,
		},
	}

	tools := make([]openai.Tool, 0, len(defs))
	for i := range defs {
		tools = append(tools, openai.Tool{
			Type:     openai.ToolTypeFunction,
			Function: &defs[i],
		})
	}
	return tools
}
