package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	"github.com/uistaff/invento-backend/internal/orders"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
)

// apologyMessage is returned whenever the model backend fails. The
// chat surface never sees a raw upstream error.
const apologyMessage = "I'm sorry, I encountered an error while processing your request. Please try again or use a command directly."

// summaryInstruction shapes the follow-up response after a tool ran.
// The model must read like a colleague, not a program trace.
const summaryInstruction = "Respond to user queries without referencing internal program mechanics or function implementations. Do not name any functions. Act like a human friend. You should not have follow up questions in your response."

// ChatCompleter is the slice of the OpenAI client the assistant needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Assistant answers free-text inventory questions by letting the model
// pick one of a fixed set of tools, executing it locally, and asking
// the model to summarize the structured result.
type Assistant struct {
	client        ChatCompleter
	model         string
	inventory     inventory.Service
	notifications notifications.Service
	orders        orders.Service
	logg          *logger.Logger
}

// New wires the assistant.
func New(
	client ChatCompleter,
	model string,
	inventorySvc inventory.Service,
	notificationsSvc notifications.Service,
	ordersSvc orders.Service,
	logg *logger.Logger,
) (*Assistant, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chat client required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if inventorySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory service required")
	}
	if notificationsSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if ordersSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service required")
	}
	return &Assistant{
		client:        client,
		model:         model,
		inventory:     inventorySvc,
		notifications: notificationsSvc,
		orders:        ordersSvc,
		logg:          logg,
	}, nil
}

// ProcessMessage runs the two-phase tool-calling exchange and returns
// the text to post back to the user. It never returns an error; model
// failures degrade to an apologetic fallback.
func (a *Assistant) ProcessMessage(ctx context.Context, text string, actorID *uuid.UUID) string {
	first, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Tools: toolset(),
	})
	if err != nil {
		a.logUpstream(ctx, err)
		return apologyMessage
	}
	if len(first.Choices) == 0 {
		return apologyMessage
	}

	choice := first.Choices[0].Message
	if len(choice.ToolCalls) == 0 {
		// No tool needed; the model's direct answer goes out unmodified.
		return choice.Content
	}

	call := choice.ToolCalls[0]
	result := a.execute(ctx, call.Function.Name, call.Function.Arguments, actorID)
	resultJSON, err := json.Marshal(result)
	if err != nil {
		a.logUpstream(ctx, err)
		return apologyMessage
	}

	second, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryInstruction},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("The user asked: %s\nThe lookup result: %s", text, resultJSON)},
		},
	})
	if err != nil {
		a.logUpstream(ctx, err)
		return apologyMessage
	}
	if len(second.Choices) == 0 {
		return apologyMessage
	}
	return second.Choices[0].Message.Content
}

type batchItem struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

type batchArgs struct {
	Items []batchItem `json:"items"`
}

type namesArgs struct {
	Names []string `json:"names"`
}

// execute runs the tool the model selected. Per-item failures inside a
// batch become error entries in the result so one bad item does not
// sink the rest.
func (a *Assistant) execute(ctx context.Context, name, rawArgs string, actorID *uuid.UUID) any {
	switch name {
	case toolGetInventoryItems:
		items, err := a.inventory.ListItems(ctx, inventory.ListQuery{})
		if err != nil {
			return map[string]string{"error": "could not load inventory"}
		}
		return items

	case toolGetInventoryItem:
		var args namesArgs
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return map[string]string{"error": "bad arguments"}
		}
		results := make([]any, 0, len(args.Names))
		for _, itemName := range args.Names {
			item, err := a.inventory.GetItemByName(ctx, itemName)
			if err != nil {
				results = append(results, map[string]string{
					"error": fmt.Sprintf("Item '%s' not found in inventory", itemName),
				})
				continue
			}
			results = append(results, item)
		}
		return results

	case toolUpdateInventoryUsage:
		return a.applyBatch(ctx, rawArgs, actorID, true)

	case toolRestockInventory:
		return a.applyBatch(ctx, rawArgs, actorID, false)

	case toolGetNotifications:
		result, err := a.notifications.List(ctx, notifications.ListParams{})
		if err != nil {
			return map[string]string{"error": "could not load notifications"}
		}
		return result.Items

	case toolGetUsageLogs:
		entries, err := a.inventory.ListUsage(ctx, inventory.UsageListQuery{})
		if err != nil {
			return map[string]string{"error": "could not load usage logs"}
		}
		return entries

	case toolGetOrders:
		list, err := a.orders.List(ctx, orders.ListQuery{})
		if err != nil {
			return map[string]string{"error": "could not load orders"}
		}
		return list

	default:
		return map[string]string{"error": fmt.Sprintf("Unknown function: %s", name)}
	}
}

func (a *Assistant) applyBatch(ctx context.Context, rawArgs string, actorID *uuid.UUID, consume bool) any {
	var args batchArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return map[string]string{"error": "bad arguments"}
	}

	results := make([]map[string]any, 0, len(args.Items))
	for _, item := range args.Items {
		input := inventory.StockMutationInput{
			Name:     item.ItemName,
			Quantity: item.Quantity,
			ActorID:  actorID,
		}
		var (
			result *inventory.MutationResult
			err    error
		)
		if consume {
			result, err = a.inventory.ConsumeStock(ctx, input)
		} else {
			result, err = a.inventory.RestockStock(ctx, input)
		}
		if err != nil {
			results = append(results, map[string]any{
				"item":  item.ItemName,
				"error": userFacing(err, item.ItemName),
			})
			continue
		}

		entry := map[string]any{
			"status":    "success",
			"item":      result.Item.Name,
			"quantity":  item.Quantity,
			"remaining": result.Item.Quantity,
			"action":    result.Usage.Action,
		}
		if consume {
			entry["low_stock"] = result.LowStock
			entry["out_of_stock"] = result.OutOfStock
		}
		results = append(results, entry)
	}
	return results
}

func userFacing(err error, itemName string) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeNotFound:
			return fmt.Sprintf("Item '%s' not found in inventory", itemName)
		case pkgerrors.CodeInsufficientStock, pkgerrors.CodeValidation:
			return typed.Message()
		}
	}
	return "storage failure"
}

func (a *Assistant) logUpstream(ctx context.Context, err error) {
	if a.logg == nil {
		return
	}
	a.logg.Error(ctx, "assistant backend failed", pkgerrors.Wrap(pkgerrors.CodeUpstreamAI, err, "chat completion"))
}
