package intent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	"github.com/uistaff/invento-backend/internal/orders"
	pkgerrors "github.com/uistaff/invento-backend/pkg/errors"
	"github.com/uistaff/invento-backend/pkg/logger"
)

const helpMessage = `Available commands:
!items - list all inventory items
!item NAME - show one item
!use QTY NAME - record usage, e.g. !use 3 toilet paper
!restock QTY NAME - record a restock
!notifications - list recent notifications
!logs - list recent usage entries
!orders - list orders
!help - show this message`

// Router turns chat input into inventory operations. Structured
// commands and pattern-matched text resolve here; anything else is
// left for the assistant. Every outcome is a user-facing string, a
// failed resolution never aborts the caller's session.
type Router struct {
	inventory     inventory.Service
	notifications notifications.Service
	orders        orders.Service
	logg          *logger.Logger
}

// NewRouter wires the command router.
func NewRouter(
	inventorySvc inventory.Service,
	notificationsSvc notifications.Service,
	ordersSvc orders.Service,
	logg *logger.Logger,
) (*Router, error) {
	if inventorySvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory service required")
	}
	if notificationsSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if ordersSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders service required")
	}
	return &Router{
		inventory:     inventorySvc,
		notifications: notificationsSvc,
		orders:        ordersSvc,
		logg:          logg,
	}, nil
}

// Route resolves chat input to an operation. The second return is
// false when nothing matched and the message should fall through to
// the assistant.
func (r *Router) Route(ctx context.Context, text string, actorID *uuid.UUID) (string, bool) {
	if IsCommand(text) {
		return r.runCommand(ctx, StripCommand(text), actorID), true
	}
	if parsed, ok := Parse(text); ok {
		return r.runIntent(ctx, parsed, actorID), true
	}
	return "", false
}

func (r *Router) runCommand(ctx context.Context, command string, actorID *uuid.UUID) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpMessage
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "help":
		return helpMessage
	case "items":
		return r.listItems(ctx)
	case "item":
		if len(args) == 0 {
			return "Usage: !item NAME"
		}
		return r.showItem(ctx, strings.Join(args, " "))
	case "use":
		return r.mutate(ctx, args, actorID, KindConsume, "Usage: !use QTY NAME")
	case "restock":
		return r.mutate(ctx, args, actorID, KindRestock, "Usage: !restock QTY NAME")
	case "notifications":
		return r.listNotifications(ctx)
	case "logs":
		return r.listUsage(ctx)
	case "orders":
		return r.listOrders(ctx)
	default:
		return helpMessage
	}
}

func (r *Router) runIntent(ctx context.Context, parsed Intent, actorID *uuid.UUID) string {
	if parsed.Quantity <= 0 {
		return fmt.Sprintf("I could not work out the quantity for %q.", parsed.ItemName)
	}

	input := inventory.StockMutationInput{
		Name:     parsed.ItemName,
		Quantity: parsed.Quantity,
		ActorID:  actorID,
	}
	switch parsed.Kind {
	case KindConsume:
		result, err := r.inventory.ConsumeStock(ctx, input)
		if err != nil {
			return r.mutationError(ctx, err, parsed.ItemName)
		}
		reply := fmt.Sprintf("%d %s removed from the inventory. %d remaining.", parsed.Quantity, result.Item.Name, result.Item.Quantity)
		if result.Notification != nil {
			reply += "\n" + result.Notification.Message
		}
		return reply
	case KindRestock:
		result, err := r.inventory.RestockStock(ctx, input)
		if err != nil {
			return r.mutationError(ctx, err, parsed.ItemName)
		}
		return fmt.Sprintf("%d %s added back to the inventory. Total: %d remaining.", parsed.Quantity, result.Item.Name, result.Item.Quantity)
	default:
		return helpMessage
	}
}

func (r *Router) mutate(ctx context.Context, args []string, actorID *uuid.UUID, kind Kind, usage string) string {
	if len(args) < 2 {
		return usage
	}
	quantity, err := strconv.Atoi(args[0])
	if err != nil || quantity <= 0 {
		return usage
	}
	return r.runIntent(ctx, Intent{
		Kind:     kind,
		ItemName: strings.Join(args[1:], " "),
		Quantity: quantity,
	}, actorID)
}

func (r *Router) mutationError(ctx context.Context, err error, itemName string) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeNotFound:
			return fmt.Sprintf("Item '%s' not found in inventory. Please add it first!", itemName)
		case pkgerrors.CodeInsufficientStock, pkgerrors.CodeValidation:
			return typed.Message()
		}
	}
	if r.logg != nil {
		r.logg.Error(ctx, "command mutation failed", err)
	}
	return "Something went wrong applying that change. Please try again."
}

func (r *Router) listItems(ctx context.Context) string {
	items, err := r.inventory.ListItems(ctx, inventory.ListQuery{})
	if err != nil {
		return "Could not load the inventory right now."
	}
	if len(items) == 0 {
		return "The inventory is empty."
	}
	var b strings.Builder
	b.WriteString("Current Inventory:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: %d", item.Name, item.Quantity)
		if item.Unit != "" {
			fmt.Fprintf(&b, " %s", item.Unit)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) showItem(ctx context.Context, name string) string {
	item, err := r.inventory.GetItemByName(ctx, name)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return fmt.Sprintf("Item '%s' not found in inventory.", name)
		}
		return "Could not load that item right now."
	}
	return fmt.Sprintf("Current stock of %s: %d (min %d, status %s)", item.Name, item.Quantity, item.MinQuantity, item.Status)
}

func (r *Router) listNotifications(ctx context.Context) string {
	result, err := r.notifications.List(ctx, notifications.ListParams{Limit: 10})
	if err != nil {
		return "Could not load notifications right now."
	}
	if len(result.Items) == 0 {
		return "No notifications."
	}
	var b strings.Builder
	b.WriteString("Recent notifications:\n")
	for _, n := range result.Items {
		fmt.Fprintf(&b, "- [%s] %s\n", n.Type, n.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) listUsage(ctx context.Context) string {
	entries, err := r.inventory.ListUsage(ctx, inventory.UsageListQuery{Limit: 10})
	if err != nil {
		return "Could not load usage logs right now."
	}
	if len(entries) == 0 {
		return "No usage recorded yet."
	}
	var b strings.Builder
	b.WriteString("Recent usage:\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "- %s: %d (%s)\n", entry.ItemName, entry.Quantity, entry.Action)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Router) listOrders(ctx context.Context) string {
	list, err := r.orders.List(ctx, orders.ListQuery{Limit: 10})
	if err != nil {
		return "Could not load orders right now."
	}
	if len(list) == 0 {
		return "No orders."
	}
	var b strings.Builder
	b.WriteString("Orders:\n")
	for _, order := range list {
		fmt.Fprintf(&b, "- %s x%d (%s)\n", order.ItemID, order.Quantity, order.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}
