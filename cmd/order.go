package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/validation"
)

func orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "order",
		Aliases: []string{"orders"},
		Short:   "Place and track orders",
	}
	cmd.AddCommand(
		orderPlaceCmd(),
		&cobra.Command{
			Use:   "list",
			Short: "List your orders",
			RunE: func(cmd *cobra.Command, args []string) error {
				orders, err := current.api.Orders(cmd.Context())
				if err != nil {
					return err
				}
				renderOrders(cmd, orders)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <order-id>",
			Short: "Show an order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				o, err := current.api.Order(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printOrder(cmd, o)
				return nil
			},
		},
	)
	return cmd
}

func orderPlaceCmd() *cobra.Command {
	var in client.PlaceOrderInput
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order for the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.PaymentMethod = strings.ToUpper(in.PaymentMethod)
			if err := validation.ValidateNonEmptyString("address", in.AddressID); err != nil {
				return invalid(err)
			}
			if err := validation.ValidatePaymentMethod(in.PaymentMethod); err != nil {
				return invalid(err)
			}
			o, err := current.api.PlaceOrder(cmd.Context(), in)
			if err != nil {
				return err
			}
			cmd.Printf("Order %s placed.\n", o.ID)
			printOrder(cmd, o)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.AddressID, "address", "a", "", "ID of the shipping address")
	cmd.Flags().StringVarP(&in.CouponCode, "coupon", "c", "", "Coupon code")
	cmd.Flags().StringVarP(&in.PaymentMethod, "payment", "p", client.PaymentCOD, "Payment method: COD or ONLINE")
	return cmd
}

func renderOrders(cmd *cobra.Command, orders []client.Order) {
	if len(orders) == 0 {
		cmd.Println("You have not placed any orders yet.")
		return
	}
	table := newTable(cmd.OutOrStdout(), "Order ID", "Placed", "Items", "Total", "Status")
	for _, o := range orders {
		placed := ""
		if !o.CreatedAt.IsZero() {
			placed = o.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		table.Append([]string{o.ID, placed, strconv.Itoa(len(o.Items)), formatPrice(o.Total), o.Status})
	}
	table.Render()
}

func printOrder(cmd *cobra.Command, o *client.Order) {
	cmd.Printf("Order: %s\n", o.ID)
	cmd.Printf("Status: %s\n", valueOr(o.Status, "unknown"))
	cmd.Printf("Payment: %s\n", valueOr(o.PaymentMethod, client.PaymentCOD))
	if len(o.Items) > 0 {
		table := newTable(cmd.OutOrStdout(), "Product ID", "Name", "Qty", "Price")
		for _, it := range o.Items {
			table.Append([]string{it.ProductID, oneLine(it.Name), strconv.Itoa(it.Quantity), formatPrice(it.Price)})
		}
		table.Render()
	}
	if o.Discount > 0 {
		cmd.Printf("Discount: -%s\n", formatPrice(o.Discount))
	}
	cmd.Printf("Total: %s\n", formatPrice(o.Total))
}
